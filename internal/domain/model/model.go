// Package model contains domain models passed between layers.
//
// JSON and YAML tags follow the camelCase wire shape the questionnaire widget
// and the admin configuration use.
package model

// QuestionType enumerates how a question is presented and how its answer is read.
type QuestionType string

// Question types.
const (
	QuestionText      QuestionType = "text"
	QuestionNumber    QuestionType = "number"
	QuestionSelect    QuestionType = "select"
	QuestionTime      QuestionType = "time"
	QuestionDistance  QuestionType = "distance"
	QuestionMultiTime QuestionType = "multitime"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionNumber, QuestionSelect, QuestionTime, QuestionDistance, QuestionMultiTime:
		return true
	}
	return false
}

// Numeric reports whether answers of type t can drive a rule's base value.
func (t QuestionType) Numeric() bool {
	switch t {
	case QuestionNumber, QuestionTime, QuestionDistance, QuestionMultiTime:
		return true
	}
	return false
}

// Logic is how a rule combines its modifiers.
type Logic string

// Modifier combination semantics.
const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Sport is a reference entity the questionnaire is scoped by.
type Sport struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Category groups products and is the unit a rule targets.
type Category struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	SportIDs    []string `json:"sportIds" yaml:"sportIds"`
}

// HasSport reports whether the category is associated with sportID.
func (c Category) HasSport(sportID string) bool {
	for _, id := range c.SportIDs {
		if id == sportID {
			return true
		}
	}
	return false
}

// Product is a purchasable item referenced by its catalog GID.
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	ShopifyGID  string   `json:"shopifyGid" yaml:"shopifyGid"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	CategoryIDs []string `json:"categoryIds" yaml:"categoryIds"`
	// Priority orders products within a category, higher first.
	Priority int `json:"priority" yaml:"priority"`
	// AmountPerUnit is the package size used to turn a total into a unit count.
	AmountPerUnit float64 `json:"amountPerUnit" yaml:"amountPerUnit"`
}

// InCategory reports whether the product belongs to categoryID.
func (p Product) InCategory(categoryID string) bool {
	for _, id := range p.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// Product defaults applied by stores when a field is absent.
const (
	DefaultPriority      = 1
	DefaultAmountPerUnit = 1
)

// SportOrder places a question inside one sport's questionnaire.
type SportOrder struct {
	SportID string `json:"sportId" yaml:"sportId"`
	Order   int    `json:"order" yaml:"order"`
}

// TimeComponent is one independently answered segment of a multitime question.
type TimeComponent struct {
	Label string `json:"label" yaml:"label"`
	Key   string `json:"key" yaml:"key"`
}

// Question is one step of the questionnaire.
type Question struct {
	ID             string          `json:"id" yaml:"id"`
	Sports         []SportOrder    `json:"sports" yaml:"sports,omitempty"`
	Text           string          `json:"text" yaml:"text"`
	Key            string          `json:"key" yaml:"key"`
	Type           QuestionType    `json:"type" yaml:"type"`
	Options        []string        `json:"options,omitempty" yaml:"options,omitempty"`
	Unit           string          `json:"unit,omitempty" yaml:"unit,omitempty"`
	TimeComponents []TimeComponent `json:"timeComponents" yaml:"timeComponents,omitempty"`
	ForAllSports   bool            `json:"forAllSports" yaml:"forAllSports,omitempty"`
}

// OrderFor returns the question's position within sportID and whether it is listed there.
func (q Question) OrderFor(sportID string) (int, bool) {
	for _, s := range q.Sports {
		if s.SportID == sportID {
			return s.Order, true
		}
	}
	return 0, false
}

// AppliesTo reports whether the question is shown for sportID.
func (q Question) AppliesTo(sportID string) bool {
	if q.ForAllSports {
		return true
	}
	_, ok := q.OrderFor(sportID)
	return ok
}

// Modifier conditionally scales a rule when a secondary answer equals Value.
type Modifier struct {
	Key        string  `json:"key" yaml:"key"`
	Value      string  `json:"value" yaml:"value"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// Rule turns one base answer into a total amount for a category.
type Rule struct {
	ID               string       `json:"id" yaml:"id"`
	CategoryID       string       `json:"categoryId" yaml:"categoryId"`
	BaseQuestionKey  string       `json:"baseQuestionKey" yaml:"baseQuestionKey"`
	BaseQuestionType QuestionType `json:"baseQuestionType" yaml:"baseQuestionType"`
	BaseMultiplier   float64      `json:"baseMultiplier" yaml:"baseMultiplier"`
	Logic            Logic        `json:"logic" yaml:"logic"`
	Modifiers        []Modifier   `json:"modifiers" yaml:"modifiers,omitempty"`
}

// ProductRecommendation is one product line of a recommendation block.
type ProductRecommendation struct {
	ProductID           string  `json:"productId"`
	ProductName         string  `json:"productName"`
	ProductURL          string  `json:"productUrl,omitempty"`
	ImageURL            string  `json:"imageUrl,omitempty"`
	VariantID           string  `json:"variantId,omitempty"`
	Price               string  `json:"price,omitempty"`
	AmountPerUnit       float64 `json:"amountPerUnit"`
	QuantityRecommended int     `json:"quantityRecommended"`
}

// Recommendation is the output block produced for one applied rule.
type Recommendation struct {
	CategoryID   string                  `json:"categoryId"`
	CategoryName string                  `json:"categoryName"`
	TotalAmount  float64                 `json:"totalAmount"`
	Products     []ProductRecommendation `json:"products"`
}

// Snapshot is a read-only copy of the whole configuration.
type Snapshot struct {
	Sports     []Sport    `json:"sports" yaml:"sports"`
	Categories []Category `json:"categories" yaml:"categories"`
	Products   []Product  `json:"products" yaml:"products"`
	Questions  []Question `json:"questions" yaml:"questions"`
	Rules      []Rule     `json:"rules" yaml:"rules"`
}

// FormData is what the questionnaire widget needs to render.
type FormData struct {
	Sports    []Sport    `json:"sports"`
	Questions []Question `json:"questions"`
}
