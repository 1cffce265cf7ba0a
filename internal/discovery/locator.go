package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/Vasu1712/scenyx-live/internal/models"
)

// FixedLocator reports a configured position. A nil Position means the
// device has no fix.
type FixedLocator struct {
	Position *models.Position
}

func (l FixedLocator) Locate(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	if l.Position == nil {
		return models.Position{}, PositionUnavailable(errors.New("no position configured"))
	}
	pos := *l.Position
	pos.CapturedAt = time.Now()
	return pos, nil
}
