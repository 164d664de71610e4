package scoring

// Category groups criteria of an assessment template.
type Category string

const (
	CategoryHardSkills Category = "hard_skills"
	CategorySoftSkills Category = "soft_skills"
	CategoryExperience Category = "experiencia"
	CategoryCultureFit Category = "fit_cultural"
	CategoryOther      Category = "outros"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryHardSkills,
	CategorySoftSkills,
	CategoryExperience,
	CategoryCultureFit,
	CategoryOther,
}

// ParseCategory maps a persisted category, defaulting to CategoryOther.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c) == s {
			return c
		}
	}
	return CategoryOther
}

// Criterion is the engine's view of one weighted template criterion.
type Criterion struct {
	ID       uint
	Name     string
	Category Category
	Weight   float64
	Scale    ScaleType
	Question Question
}

// CriteriaIndex looks criteria up by id.
type CriteriaIndex map[uint]Criterion

// NewCriteriaIndex indexes criteria by id. Later duplicates win.
func NewCriteriaIndex(criteria []Criterion) CriteriaIndex {
	idx := make(CriteriaIndex, len(criteria))
	for _, c := range criteria {
		idx[c.ID] = c
	}
	return idx
}
