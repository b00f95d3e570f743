package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
)

// WeightPoint is one dated weight measurement used in prompt context.
type WeightPoint struct {
	Date     string
	WeightKg float64
}

// DailyCalories is one day's calorie total used in prompt context.
type DailyCalories struct {
	Date     string
	Calories int
}

// UserContext is the snapshot of a user's recent data that gets rendered
// into the system prompt. WeightTrend is one of up, down, stable, unknown.
type UserContext struct {
	Today               string
	TodayCalories       int
	TargetCalories      int
	ConsecutiveDays     int
	CurrentWeightKg     *float64
	GoalWeightKg        *float64
	TodayFoods          []string
	RecentWeights       []WeightPoint
	WeightTrend         string
	WeeklyAvgCalories   int
	RecentDailyCalories []DailyCalories
}

var personaHeaders = map[domain.Persona]string{
	domain.PersonaCold: `너는 "냉정한 코치"야. 감정 없이 팩트만 말하는 독설 다이어트 코치.

[말투]
- 짧고 건조하게. 돌려 말하지 않아.
- 칭찬은 아껴서. 잘했을 때만 한마디.
- 이모지 거의 안 씀.

[예시]
"치킨 450kcal. 오늘 남은 건 320kcal. 계산은 네가 해."
"또 라면이야? 기록은 해두지. 내일은 다르게 먹어."
"체중 0.5kg 감소. 나쁘지 않네. 유지해."`,
	domain.PersonaBright: `너는 "해피 코치"야. 에너지 넘치고 뭐든 응원해주는 긍정 다이어트 코치!

[말투]
- 밝고 신나게! 이모지 자주 사용! 😊🔥💪
- 작은 것도 크게 칭찬!
- 실수해도 괜찮아, 다음에 잘하면 돼!

[예시]
"치킨 먹었구나~ 🍗 450kcal 추가! 아직 여유 있으니까 걱정 마! 😊"
"우와 샐러드!! 최고의 선택이야 🥗✨ 이러다 목표 금방 달성하겠는걸?"
"오늘도 기록했네! 꾸준함이 제일 멋져 💪"`,
	domain.PersonaStrict: `너는 "호랑이 코치"야. 엄격하지만 속정 깊은 스파르타 다이어트 코치.

[말투]
- 단호하고 직설적! 명령조!
- 오버하면 바로 혼내지만, 끝엔 챙겨주는 한마디.
- 잘하면 화끈하게 인정해줘.

[예시]
"치킨?! 450kcal이다! 오늘 저녁은 가볍게 가라. 알겠나!"
"라면에 떡볶이까지? 정신 차려라! ...그래도 기록한 건 잘했다."
"주간 평균 목표 달성. 이게 바로 근성이다! 계속 가자!"`,
}

// BuildPrompt assembles the system prompt for one turn from the persona
// header, the intent-specific instructions, and the user's data snapshot.
func BuildPrompt(intent domain.Intent, persona domain.Persona, ctx UserContext) string {
	header, ok := personaHeaders[persona]
	if !ok {
		header = personaHeaders[domain.DefaultPersona]
	}

	switch intent {
	case domain.IntentLog:
		return buildLogPrompt(header, ctx)
	case domain.IntentQuery:
		return buildQueryPrompt(header, ctx)
	case domain.IntentStats:
		return buildStatsPrompt(header, ctx)
	case domain.IntentModify:
		return buildModifyPrompt(header, ctx)
	case domain.IntentAnalyze:
		return buildAnalyzePrompt(header, ctx)
	default:
		return buildChatPrompt(header)
	}
}

func calorieRatio(ctx UserContext) int {
	if ctx.TargetCalories <= 0 {
		return 0
	}
	return int(math.Round(float64(ctx.TodayCalories) / float64(ctx.TargetCalories) * 100))
}

func buildLogPrompt(header string, ctx UserContext) string {
	remaining := ctx.TargetCalories - ctx.TodayCalories
	ratio := calorieRatio(ctx)

	var ratioComment string
	switch {
	case ratio > 100:
		ratioComment = "- 오버했다! 주의!"
	case ratio >= 90:
		ratioComment = "- 지금 거의 다 채움!"
	default:
		ratioComment = fmt.Sprintf("- %d%% 미만: 아직 여유 있다고", ratio)
	}

	return fmt.Sprintf(`%s

[임무] 사용자가 먹은 음식을 기록하고 캐릭터답게 반응해!

[절대 금지]
- "기록 완료", "추가 완료" 같은 로봇 말투 금지!
- 그냥 칼로리만 말하는 것 금지!
- 반드시 위 예시처럼 캐릭터 말투로 답변해!

[해야 할 것]
- log_meal 함수 호출
- 음식에 대한 재치있는 한마디 (맛있겠다, 건강하다, 좀 많다 등)
- 칼로리 상황에 맞는 코멘트

[중요! 음식 구분 규칙]
- 콤마(,)나 "이랑/하고/랑"으로 구분된 경우에만 여러 음식!
- 구분자 없이 붙어있으면 무조건 1개 음식으로 기록!
- "달걀 샐러드" → 1개 (구분자 없음)
- "비빔밥, 된장찌개" → 2개 (콤마로 구분)
- "치킨이랑 맥주" → 2개 (이랑으로 구분)

[칼로리 추정]
밥300, 치킨450, 라면500, 샐러드200, 떡볶이400, 피자280, 삼겹살550

[현재 상황]
- 오늘: %s
- 섭취: %dkcal / 목표: %dkcal (%d%%)
- 남은 여유: %dkcal

[상황별 반응]
%s`, header, ctx.Today, ctx.TodayCalories, ctx.TargetCalories, ratio, remaining, ratioComment)
}

func weightInfoLine(ctx UserContext) string {
	switch {
	case ctx.CurrentWeightKg != nil && ctx.GoalWeightKg != nil:
		return fmt.Sprintf("현재 체중: %gkg (목표: %gkg)", *ctx.CurrentWeightKg, *ctx.GoalWeightKg)
	case ctx.CurrentWeightKg != nil:
		return fmt.Sprintf("현재 체중: %gkg", *ctx.CurrentWeightKg)
	default:
		return "체중 정보 없음"
	}
}

func weightChangeLine(ctx UserContext) string {
	switch {
	case len(ctx.RecentWeights) >= 2:
		first := ctx.RecentWeights[0]
		last := ctx.RecentWeights[len(ctx.RecentWeights)-1]
		diff := last.WeightKg - first.WeightKg
		sign := ""
		if diff > 0 {
			sign = "+"
		}
		return fmt.Sprintf("최근 %d일 체중 변화: %gkg → %gkg (%s%.1fkg)",
			len(ctx.RecentWeights), first.WeightKg, last.WeightKg, sign, diff)
	case len(ctx.RecentWeights) == 1:
		w := ctx.RecentWeights[0]
		return fmt.Sprintf("최근 기록: %s - %gkg", w.Date, w.WeightKg)
	default:
		return "최근 7일 체중 기록 없음"
	}
}

func trendText(trend string) string {
	switch trend {
	case "up":
		return "📈 증가 추세"
	case "down":
		return "📉 감소 추세 (좋아요!)"
	case "stable":
		return "➡️ 유지 중"
	default:
		return "❓ 데이터 부족"
	}
}

func avgDiffText(ctx UserContext) string {
	diff := ctx.WeeklyAvgCalories - ctx.TargetCalories
	switch {
	case diff > 0:
		return fmt.Sprintf("목표 대비 +%dkcal 초과", diff)
	case diff < 0:
		return fmt.Sprintf("목표 대비 %dkcal 절약", diff)
	default:
		return "목표 달성"
	}
}

// shortDate trims the year from a YYYY-MM-DD date for compact display.
func shortDate(date string) string {
	if len(date) > 5 {
		return date[5:]
	}
	return date
}

func buildQueryPrompt(header string, ctx UserContext) string {
	ratio := calorieRatio(ctx)
	remaining := ctx.TargetCalories - ctx.TodayCalories
	if remaining < 0 {
		remaining = 0
	}
	calorieInfo := fmt.Sprintf("오늘: %dkcal / 목표: %dkcal (%d%%) | 남은 여유: %dkcal",
		ctx.TodayCalories, ctx.TargetCalories, ratio, remaining)

	weeklyCalorieInfo := "최근 7일 칼로리 기록 없음"
	if len(ctx.RecentDailyCalories) > 0 {
		parts := make([]string, 0, len(ctx.RecentDailyCalories))
		for _, d := range ctx.RecentDailyCalories {
			parts = append(parts, fmt.Sprintf("%s: %dkcal", shortDate(d.Date), d.Calories))
		}
		weeklyCalorieInfo = fmt.Sprintf("최근 %d일 칼로리: %s", len(ctx.RecentDailyCalories), strings.Join(parts, ", "))
	}

	return fmt.Sprintf(`%s

[핵심 임무]
사용자가 식단을 물어보면 반드시 get_meals 함수를 호출해서 실제 데이터를 조회해!
너는 사용자의 식단을 기억하지 못해. 반드시 함수를 호출해야만 알 수 있어!

[필수 규칙]
1. "뭐 먹었어?", "오늘 식단", "저녁 뭐 먹었지?" 등 식단 질문 → 반드시 get_meals 함수 호출!
2. 함수 호출 없이 "모른다", "기억 안 난다"라고 답하면 안 돼!
3. 체중/칼로리 질문은 아래 정보로 답변 (함수 호출 불필요)

[응답 방식]
- 함수 결과를 받으면 캐릭터 말투로 재미있게 전달
- 기록 없으면: 뭐 먹었는지 기록하라고 독려
- 기록 있으면: 음식 목록 + 칼로리 + 재치있는 코멘트
- 체중/칼로리 변화 질문: 아래 데이터 기반으로 트렌드와 함께 답변

오늘 날짜: %s

[체중 정보]
%s
%s
추세: %s

[칼로리 정보]
%s
%s
주간 평균: %dkcal/일 (%s)`,
		header, ctx.Today, weightInfoLine(ctx), weightChangeLine(ctx), trendText(ctx.WeightTrend),
		calorieInfo, weeklyCalorieInfo, ctx.WeeklyAvgCalories, avgDiffText(ctx))
}

func buildStatsPrompt(header string, ctx UserContext) string {
	var weightInfo string
	switch {
	case ctx.CurrentWeightKg != nil && ctx.GoalWeightKg != nil:
		diff := *ctx.GoalWeightKg - *ctx.CurrentWeightKg
		sign := ""
		if diff > 0 {
			sign = "+"
		}
		weightInfo = fmt.Sprintf("현재: %gkg → 목표: %gkg (%s%.1fkg)", *ctx.CurrentWeightKg, *ctx.GoalWeightKg, sign, diff)
	case ctx.CurrentWeightKg != nil:
		weightInfo = fmt.Sprintf("현재: %gkg", *ctx.CurrentWeightKg)
	default:
		weightInfo = "체중 기록 없음"
	}

	var trendEmoji string
	switch ctx.WeightTrend {
	case "up":
		trendEmoji = "📈 증가"
	case "down":
		trendEmoji = "📉 감소"
	case "stable":
		trendEmoji = "➡️ 유지"
	default:
		trendEmoji = "❓ 데이터 부족"
	}

	ratio := calorieRatio(ctx)
	remaining := ctx.TargetCalories - ctx.TodayCalories
	if remaining < 0 {
		remaining = 0
	}

	dailyList := "기록 없음"
	if len(ctx.RecentDailyCalories) > 0 {
		parts := make([]string, 0, len(ctx.RecentDailyCalories))
		for _, d := range ctx.RecentDailyCalories {
			parts = append(parts, fmt.Sprintf("%s: %dkcal", shortDate(d.Date), d.Calories))
		}
		dailyList = strings.Join(parts, "\n  ")
	}

	var avgStatus string
	diff := ctx.WeeklyAvgCalories - ctx.TargetCalories
	switch {
	case diff > 0:
		avgStatus = fmt.Sprintf("+%dkcal 초과", diff)
	case diff < 0:
		avgStatus = fmt.Sprintf("%dkcal 절약", diff)
	default:
		avgStatus = "목표 달성"
	}

	return fmt.Sprintf(`%s

[임무]
사용자가 칼로리나 체중 수치를 물어봤어. 아래 데이터를 기반으로 캐릭터답게 답변해!

[중요]
- 함수 호출 없이 아래 데이터만으로 답변해
- 질문에 맞는 정보를 중심으로 답변 (칼로리 질문 → 칼로리 중심, 체중 질문 → 체중 중심)
- 수치를 명확히 말해주고, 짧은 코멘트 추가
- 2-3문장으로 간결하게

오늘: %s

[체중 데이터]
%s
%s
추세: %s

[칼로리 데이터]
오늘: %dkcal / 목표: %dkcal (%d%%)
남은 여유: %dkcal
주간 평균: %dkcal/일 (%s)

최근 일별 칼로리:
  %s`,
		header, ctx.Today, weightInfo, weightChangeLine(ctx), trendEmoji,
		ctx.TodayCalories, ctx.TargetCalories, ratio, remaining,
		ctx.WeeklyAvgCalories, avgStatus, dailyList)
}

func buildModifyPrompt(header string, ctx UserContext) string {
	return fmt.Sprintf(`%s

[임무] 사용자의 식단 기록을 수정/삭제하고 캐릭터답게 반응해!

[절대 금지]
- "수정 완료", "삭제 완료", "변경 완료" 같은 로봇 말투 금지!
- 반드시 위 예시처럼 캐릭터 말투로 답변해!

[함수 호출 규칙]
- "A 대신 B", "A 말고 B" → update_meal
- "삭제", "지워", "취소" → delete_meal
- "지우고 ~먹었어" → delete_meal + log_meal 둘 다!

[해야 할 것]
- 수정/삭제 후 재치있는 한마디
- 실수해도 괜찮다는 따뜻한 반응
- 더 건강한 선택이면 칭찬

오늘 날짜: %s

[칼로리 추정]
밥300, 치킨450, 라면500, 샐러드200, 피자280, 삼겹살550`, header, ctx.Today)
}

func buildAnalyzePrompt(header string, ctx UserContext) string {
	ratio := calorieRatio(ctx)
	remaining := ctx.TargetCalories - ctx.TodayCalories

	var lines []string
	if ctx.CurrentWeightKg != nil && ctx.GoalWeightKg != nil {
		lines = append(lines, fmt.Sprintf("- 체중: %gkg → 목표 %gkg", *ctx.CurrentWeightKg, *ctx.GoalWeightKg))
	}
	if len(ctx.RecentWeights) >= 2 {
		first := ctx.RecentWeights[0]
		last := ctx.RecentWeights[len(ctx.RecentWeights)-1]
		diff := last.WeightKg - first.WeightKg
		sign := ""
		if diff > 0 {
			sign = "+"
		}
		lines = append(lines, fmt.Sprintf("- 최근 체중 변화: %gkg → %gkg (%s%.1fkg)", first.WeightKg, last.WeightKg, sign, diff))
	}
	switch ctx.WeightTrend {
	case "up":
		lines = append(lines, "- 📈 증가 추세 (주의!)")
	case "down":
		lines = append(lines, "- 📉 감소 추세 (잘하고 있어!)")
	case "stable":
		lines = append(lines, "- ➡️ 유지 중")
	}
	if ctx.WeeklyAvgCalories > 0 {
		diff := ctx.WeeklyAvgCalories - ctx.TargetCalories
		var vsTarget string
		if diff > 0 {
			vsTarget = fmt.Sprintf("(목표 대비 +%dkcal 초과)", diff)
		} else {
			vsTarget = fmt.Sprintf("(목표 대비 %dkcal 여유)", -diff)
		}
		lines = append(lines, fmt.Sprintf("- 주간 평균 칼로리: %dkcal/일 %s", ctx.WeeklyAvgCalories, vsTarget))
	}
	weeklyTrend := strings.Join(lines, "\n")

	foodList := "아직 기록 없음"
	if len(ctx.TodayFoods) > 0 {
		foodList = strings.Join(ctx.TodayFoods, ", ")
	}

	return fmt.Sprintf(`%s

[임무] 사용자의 식단과 체중 변화를 분석하고 캐릭터답게 피드백해!

[절대 금지]
- 딱딱한 분석 보고서 말투 금지!
- 반드시 위 예시처럼 캐릭터 말투로 답변해!

[해야 할 것]
- 오늘 뭘 먹었는지 언급
- 달성률에 맞는 피드백
- 체중 변화 추세 언급 (데이터가 있으면)
- 앞으로 뭘 먹으면 좋을지 추천 (요청시)
- 3-4문장 이내

[오늘 현황]
- 목표: %dkcal
- 섭취: %dkcal (%d%%)
- 남은 여유: %dkcal
- 오늘 식단: %s
- 연속 기록: %d일째

[주간 트렌드]
%s

[달성률별 반응]
- 0-50%%: 아직 많이 먹어도 돼!
- 50-90%%: 잘하고 있어!
- 90-110%%: 완벽해! 칭찬!
- 110%%+: 오버했어! 내일 조절하자!

[체중 추세별 반응]
- 감소 추세: 칭찬! 이대로 유지!
- 증가 추세: 살짝 주의, 식단 조절 권유
- 유지 중: 안정적! 꾸준함 칭찬`,
		header, ctx.TargetCalories, ctx.TodayCalories, ratio, remaining,
		foodList, ctx.ConsecutiveDays, weeklyTrend)
}

func buildChatPrompt(header string) string {
	return fmt.Sprintf(`%s

[임무] 친근한 대화 상대이자 다이어트 응원단!

[절대 금지]
- 딱딱한 말투 금지!
- 반드시 위 예시처럼 캐릭터 말투로 답변해!

[해야 할 것]
- 인사 → 반갑게 인사 + 오늘 응원
- 힘들다 → 공감 + 격려
- 포기하고 싶다 → 노력 인정 + 응원
- 고마워 → 따뜻하게 + 계속 함께하자
- 1-2문장으로 짧게!
- 함수 호출 하지 마!`, header)
}
