package domain

import "context"

// AppPolicy holds the per-app facts the launch gate decides on.
type AppPolicy struct {
	Package     string `json:"package"`
	Distracting bool   `json:"distracting"`
	Hidden      bool   `json:"hidden"`
	// TimeLimitMinutes overrides the global default time limit. Nil means
	// "use the global default", which keeps the app tracking later changes
	// to the default.
	TimeLimitMinutes *int `json:"time_limit_minutes,omitempty"`
}

// TimeLimitInfo reports the effective time limit for an app and whether it
// comes from the global default or a per-app override.
type TimeLimitInfo struct {
	Minutes     int  `json:"minutes"`
	UsesDefault bool `json:"uses_default"`
}

// PolicyReader is the read side of app policy persistence. Unknown packages
// yield the zero policy, not an error.
type PolicyReader interface {
	GetPolicy(ctx context.Context, pkg string) (AppPolicy, error)
}

// PolicyRepository abstracts app policy persistence.
type PolicyRepository interface {
	PolicyReader

	// SetTimeLimit stores a per-app override. Nil clears the override so
	// the app follows the global default again.
	SetTimeLimit(ctx context.Context, pkg string, minutes *int) error

	// SetFlags stores the distracting/hidden flags for an app.
	SetFlags(ctx context.Context, pkg string, distracting, hidden bool) error
}

// Category is a coarse platform app category used to infer distraction
// proneness when no explicit flag is set.
type Category string

const (
	CategoryGame   Category = "game"
	CategorySocial Category = "social"
	CategoryVideo  Category = "video"
	CategoryNews   Category = "news"
	CategoryOther  Category = "other"
)

// DistractionProne reports whether the category is one the launcher treats
// as distraction-prone by default.
func (c Category) DistractionProne() bool {
	switch c {
	case CategoryGame, CategorySocial, CategoryVideo, CategoryNews:
		return true
	default:
		return false
	}
}

// Classifier maps a package to a platform app category. Platform
// integrations supply their own; ok is false when the platform exposes no
// category for the package.
type Classifier interface {
	Category(pkg string) (Category, bool)
}
