package middleware

import (
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BridgeKeyHeader carries the shared secret a UI presents to the bridge.
const BridgeKeyHeader = "X-Bridge-Key"

// BridgeKey rejects requests whose X-Bridge-Key does not match the bcrypt
// hash. An empty hash disables the check. Websocket clients that cannot set
// headers may pass the key as the "key" query parameter.
func BridgeKey(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(BridgeKeyHeader)
			if key == "" {
				key = r.URL.Query().Get("key")
			}
			if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
				log.Printf("[Auth] rejected %s %s", r.Method, r.URL.Path)
				http.Error(w, "invalid bridge key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
