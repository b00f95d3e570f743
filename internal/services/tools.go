package services

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/utils"
)

// Tool (function-call) names exposed to the model.
const (
	ToolLogMeal    = "log_meal"
	ToolGetMeals   = "get_meals"
	ToolDeleteMeal = "delete_meal"
	ToolUpdateMeal = "update_meal"
)

// ToolDefinition declares one callable function. Parameters use the OpenAI
// JSON-schema types directly; the Gemini provider converts them.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

var foodSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"name":     {Type: jsonschema.String, Description: "음식 이름과 양"},
		"quantity": {Type: jsonschema.Number, Description: "인분 수 (기본값 1)"},
		"calories": {Type: jsonschema.Number, Description: "총 칼로리 (kcal)"},
		"protein":  {Type: jsonschema.Number, Description: "단백질 (g)"},
		"carbs":    {Type: jsonschema.Number, Description: "탄수화물 (g)"},
		"fat":      {Type: jsonschema.Number, Description: "지방 (g)"},
	},
	Required: []string{"name", "calories", "protein", "carbs", "fat"},
}

var logMealTool = ToolDefinition{
	Name: ToolLogMeal,
	Description: `사용자가 먹은 음식을 기록합니다.
"~먹었어", "~섭취했어" 등 음식 섭취 언급 시 호출하세요.

칼로리 추정: 밥300, 국/찌개100-200, 치킨1/4마리450, 라면500`,
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"meal_type": {
				Type:        jsonschema.String,
				Enum:        []string{"breakfast", "lunch", "dinner", "snack"},
				Description: "식사 종류 (시간 기준: 아침5-10시, 점심10-15시, 저녁15-21시, 그 외 간식)",
			},
			"foods": {
				Type:        jsonschema.Array,
				Description: "먹은 음식들",
				Items:       &foodSchema,
			},
			"date": {Type: jsonschema.String, Description: "YYYY-MM-DD 형식의 날짜."},
		},
		Required: []string{"foods"},
	},
}

var getMealsTool = ToolDefinition{
	Name: ToolGetMeals,
	Description: `사용자의 식단 기록을 조회합니다.
사용자가 "오늘 뭐 먹었지?", "아침에 뭐 먹었어?", "어제 식단 알려줘" 등 식단 조회를 요청하면 이 함수를 호출하세요.`,
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"date": {Type: jsonschema.String, Description: "YYYY-MM-DD 형식의 날짜. 기본값은 오늘."},
			"meal_type": {
				Type:        jsonschema.String,
				Enum:        []string{"breakfast", "lunch", "dinner", "snack", "all"},
				Description: `조회할 식사 종류. 기본값은 "all".`,
			},
		},
	},
}

var deleteMealTool = ToolDefinition{
	Name: ToolDeleteMeal,
	Description: `사용자의 식단 기록을 삭제합니다.

예시:
- "점심 피자 지워줘" → meal_type: "lunch", food_name: "피자"
- "아침 취소해줘" → meal_type: "breakfast" (전체 삭제)
- "어제 저녁 삭제" → date: 어제날짜, meal_type: "dinner"

중요: 날짜를 언급하지 않으면 반드시 오늘 날짜를 사용하세요.`,
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"date": {Type: jsonschema.String, Description: `YYYY-MM-DD 형식. 미지정시 오늘 날짜 사용. "어제"는 오늘-1일로 계산.`},
			"meal_type": {
				Type:        jsonschema.String,
				Enum:        []string{"breakfast", "lunch", "dinner", "snack"},
				Description: "삭제할 식사 종류.",
			},
			"food_name": {Type: jsonschema.String, Description: "삭제할 특정 음식 이름. 미지정시 해당 끼니 전체 삭제."},
		},
		Required: []string{"meal_type"},
	},
}

var updateMealTool = ToolDefinition{
	Name: ToolUpdateMeal,
	Description: `사용자의 식단 기록을 수정합니다.

패턴 인식 (중요!):
- "A 대신 B 먹었어" → old_food_name: "A", new_food.name: "B"
- "A 말고 B였어" → old_food_name: "A", new_food.name: "B"
- "A를 B로 바꿔줘" → old_food_name: "A", new_food.name: "B"

중요: 날짜를 언급하지 않으면 반드시 오늘 날짜를 사용하세요.
칼로리 추정: 밥300, 치킨450, 라면500, 샐러드200, 닭가슴살150, 계란후라이180`,
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"date": {Type: jsonschema.String, Description: `YYYY-MM-DD 형식. 미지정시 오늘 날짜 사용. "어제"는 오늘-1일로 계산.`},
			"meal_type": {
				Type:        jsonschema.String,
				Enum:        []string{"breakfast", "lunch", "dinner", "snack"},
				Description: `수정할 식사 종류. "점심"=lunch, "아침"=breakfast, "저녁"=dinner`,
			},
			"old_food_name": {Type: jsonschema.String, Description: `수정 대상 기존 음식 이름. "A 대신 B"에서 A에 해당.`},
			"new_food": {
				Type:        jsonschema.Object,
				Description: `새로운 음식 정보. "A 대신 B"에서 B에 해당. 영양정보 추정 필수.`,
				Properties: map[string]jsonschema.Definition{
					"name":     {Type: jsonschema.String},
					"calories": {Type: jsonschema.Number},
					"protein":  {Type: jsonschema.Number},
					"carbs":    {Type: jsonschema.Number},
					"fat":      {Type: jsonschema.Number},
				},
				Required: []string{"name", "calories", "protein", "carbs", "fat"},
			},
		},
		Required: []string{"meal_type", "old_food_name", "new_food"},
	},
}

// ToolsForIntent returns the tool set for an intent. The mapping is total
// and depends on the intent alone: query gets the lookup only, log and
// modify get mutation tools, everything else gets none.
func ToolsForIntent(intent domain.Intent) []ToolDefinition {
	switch intent {
	case domain.IntentLog:
		return []ToolDefinition{logMealTool}
	case domain.IntentQuery:
		return []ToolDefinition{getMealsTool}
	case domain.IntentModify:
		return []ToolDefinition{deleteMealTool, updateMealTool, logMealTool}
	default:
		return nil
	}
}

// ForcedToolForIntent returns the tool the model must call for an intent,
// or "" when tool choice is left to the model. Query never answers from
// memory, so its lookup is forced.
func ForcedToolForIntent(intent domain.Intent) string {
	if intent == domain.IntentQuery {
		return ToolGetMeals
	}
	return ""
}

// FoodInput is one food as proposed by the model, nutrients per serving
// (scaling by quantity happens in the meal store).
type FoodInput struct {
	Name     string
	Quantity float64
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// ToolAction is the validated form of a model tool call, one variant per
// function. Parsers fail closed: malformed arguments yield no action
// instead of an error.
type ToolAction interface {
	toolName() string
}

type LogMealAction struct {
	// MealType is empty when the model omitted it; the executor infers it
	// from the current time of day.
	MealType domain.MealType
	Date     string
	Foods    []FoodInput
}

type GetMealsAction struct {
	Date     string
	MealType domain.MealType // MealTypeAll when unfiltered
}

type DeleteMealAction struct {
	Date     string
	MealType domain.MealType
	FoodName string // empty deletes the whole meal
}

type UpdateMealAction struct {
	Date        string
	MealType    domain.MealType
	OldFoodName string
	NewFood     FoodInput
}

func (LogMealAction) toolName() string    { return ToolLogMeal }
func (GetMealsAction) toolName() string   { return ToolGetMeals }
func (DeleteMealAction) toolName() string { return ToolDeleteMeal }
func (UpdateMealAction) toolName() string { return ToolUpdateMeal }

type foodArgs struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (f foodArgs) toInput() FoodInput {
	quantity := f.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	return FoodInput{
		Name:     f.Name,
		Quantity: quantity,
		Calories: f.Calories,
		Protein:  f.Protein,
		Carbs:    f.Carbs,
		Fat:      f.Fat,
	}
}

func defaultDate(raw string) string {
	if raw == "" || !utils.ValidDate(raw) {
		return utils.Today()
	}
	return raw
}

// ParseToolCall validates raw function-call arguments into a ToolAction.
// The second return is false for unknown tools and malformed or incomplete
// arguments; the orchestrator treats such calls as inert.
func ParseToolCall(name, rawArgs string) (ToolAction, bool) {
	switch name {
	case ToolLogMeal:
		return parseLogMealArgs(rawArgs)
	case ToolGetMeals:
		return parseGetMealsArgs(rawArgs), true
	case ToolDeleteMeal:
		return parseDeleteMealArgs(rawArgs)
	case ToolUpdateMeal:
		return parseUpdateMealArgs(rawArgs)
	default:
		return nil, false
	}
}

func parseLogMealArgs(raw string) (ToolAction, bool) {
	var args struct {
		MealType string     `json:"meal_type"`
		Date     string     `json:"date"`
		Foods    []foodArgs `json:"foods"`
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}
	if len(args.Foods) == 0 {
		return nil, false
	}

	// Missing meal type is inferred later from the time of day; an invalid
	// one means the model went off-schema, so the call is dropped.
	var mealType domain.MealType
	if args.MealType != "" {
		mt, ok := domain.ParseMealType(args.MealType)
		if !ok {
			return nil, false
		}
		mealType = mt
	}

	foods := make([]FoodInput, 0, len(args.Foods))
	for _, f := range args.Foods {
		foods = append(foods, f.toInput())
	}
	return LogMealAction{
		MealType: mealType,
		Date:     defaultDate(args.Date),
		Foods:    foods,
	}, true
}

func parseGetMealsArgs(raw string) GetMealsAction {
	var args struct {
		Date     string `json:"date"`
		MealType string `json:"meal_type"`
	}
	// The lookup has no required fields; malformed JSON degrades to the
	// default "all meals today" query.
	_ = json.Unmarshal([]byte(raw), &args)
	return GetMealsAction{
		Date:     defaultDate(args.Date),
		MealType: domain.ParseMealFilter(args.MealType),
	}
}

func parseDeleteMealArgs(raw string) (ToolAction, bool) {
	var args struct {
		Date     string `json:"date"`
		MealType string `json:"meal_type"`
		FoodName string `json:"food_name"`
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}
	mealType, ok := domain.ParseMealType(args.MealType)
	if !ok {
		return nil, false
	}
	return DeleteMealAction{
		Date:     defaultDate(args.Date),
		MealType: mealType,
		FoodName: args.FoodName,
	}, true
}

func parseUpdateMealArgs(raw string) (ToolAction, bool) {
	var args struct {
		Date        string    `json:"date"`
		MealType    string    `json:"meal_type"`
		OldFoodName string    `json:"old_food_name"`
		NewFood     *foodArgs `json:"new_food"`
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, false
	}
	mealType, ok := domain.ParseMealType(args.MealType)
	if !ok || args.OldFoodName == "" || args.NewFood == nil || args.NewFood.Name == "" {
		return nil, false
	}
	return UpdateMealAction{
		Date:        defaultDate(args.Date),
		MealType:    mealType,
		OldFoodName: args.OldFoodName,
		NewFood:     args.NewFood.toInput(),
	}, true
}
