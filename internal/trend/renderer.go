package trend

import "github.com/chickenshout/craftwatch/internal/domain"

// Renderer writes a trend artifact for one or more sample series and
// returns its path.
type Renderer interface {
	Render(series map[string][]domain.TrendPoint, windowDays int) (string, error)
}
