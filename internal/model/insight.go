package model

// Recipe は言語モデルが提案したレシピを表す。
type Recipe struct {
	Title        string   `json:"title" validate:"required"`
	Ingredients  []string `json:"ingredients" validate:"required,min=1,dive,required"`
	Instructions []string `json:"instructions" validate:"required,min=1,dive,required"`
}

// KPIReport は在庫の消費・廃棄に関する指標を表す。
// 各値は単位を含む文字列で、言語モデルが算出する。
type KPIReport struct {
	TotalWastedValue         string `json:"totalWastedValue,omitempty"`
	TotalFridgeValue         string `json:"totalFridgeValue,omitempty"`
	PotentialSavings         string `json:"potentialSavings,omitempty"`
	RecommendedGroceryBudget string `json:"recommendedGroceryBudget,omitempty"`
	EnvironmentalImpact      string `json:"environmentalImpact,omitempty"`
}

// KPIKeys はKPIレポートに必須のキー。
var KPIKeys = []string{
	"totalWastedValue",
	"totalFridgeValue",
	"potentialSavings",
	"recommendedGroceryBudget",
	"environmentalImpact",
}

// IsZero はレポートが空（フォールバック値）の場合にtrueを返す。
func (r KPIReport) IsZero() bool {
	return r == KPIReport{}
}
