package gate

import "github.com/hauke92/mindgate/internal/domain"

// StaticClassifier maps packages to categories via a fixed table. The
// launcher UI ships the platform's category data; this table only covers
// apps the daemon should recognize before the UI has synced any flags.
type StaticClassifier struct {
	categories map[string]domain.Category
}

var _ domain.Classifier = (*StaticClassifier)(nil)

func NewStaticClassifier(categories map[string]domain.Category) *StaticClassifier {
	return &StaticClassifier{categories: categories}
}

// NewDefaultClassifier returns a classifier seeded with widely installed
// apps whose categories are stable.
func NewDefaultClassifier() *StaticClassifier {
	return NewStaticClassifier(map[string]domain.Category{
		"com.instagram.android":            domain.CategorySocial,
		"com.zhiliaoapp.musically":         domain.CategorySocial,
		"com.twitter.android":              domain.CategorySocial,
		"com.snapchat.android":             domain.CategorySocial,
		"com.reddit.frontpage":             domain.CategorySocial,
		"com.facebook.katana":              domain.CategorySocial,
		"com.google.android.youtube":       domain.CategoryVideo,
		"com.netflix.mediaclient":          domain.CategoryVideo,
		"com.amazon.avod.thirdpartyclient": domain.CategoryVideo,
		"tv.twitch.android.app":            domain.CategoryVideo,
	})
}

func (c *StaticClassifier) Category(pkg string) (domain.Category, bool) {
	cat, ok := c.categories[pkg]
	return cat, ok
}
