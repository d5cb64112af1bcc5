package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRestaurantCompoundPattern(t *testing.T) {
	decision := ClassifyWithHint("ช่วยแนะนำร้านอาหารอร่อยๆ ที่น่านให้หน่อยได้ไหมคะ?", Hint{})
	require.Equal(t, Restaurant, decision.Intent)
	assert.Equal(t, "compound", decision.Reason)
}

func TestClassifyActivityCompoundPattern(t *testing.T) {
	assert.Equal(t, Activity, Classify("มีที่เที่ยวอะไรน่าสนใจในน่าน"))
}

func TestCompoundPatternBeatsKeywordScores(t *testing.T) {
	// Heavy activity keywords, but the restaurant compound pattern still wins.
	text := "restaurant near the temple museum market beach park viewpoint"
	assert.Equal(t, Restaurant, Classify(text))

	text = "อาหารเหนือ อาหารพื้นเมือง ของหวาน กาแฟ attraction"
	assert.Equal(t, Activity, Classify(text))
}

func TestClassifyNoKeywordsIsGeneral(t *testing.T) {
	for _, text := range []string{"", "   ", "hello there", "ok", "น่านเป็นยังไงบ้าง", "ควรพักที่ไหนในน่าน", "tell me about Nan"} {
		assert.Equal(t, GeneralTravel, Classify(text), "text=%q", text)
	}
}

func TestClassifyShortTravelPhraseIsDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		require.Equal(t, Activity, Classify("ไปเที่ยวน่าน"))
	}
}

func TestClassifyKeywordScoring(t *testing.T) {
	cases := map[string]Intent{
		"อยากกินอาหารพื้นเมืองที่น่าน":     Restaurant,
		"มีร้านอาหารดีๆที่ไหนบ้างในน่าน":    Restaurant,
		"อาหารเหนือที่น่านมีร้านแนะนำไหม":   Restaurant,
		"where should I eat in Nan?":       Restaurant,
		"good restaurants in Nan province": Restaurant,
		"อยากไปเที่ยวที่ไหนดีในน่าน":        Activity,
		"แนะนำสถานที่ท่องเที่ยวในน่าน":      Activity,
		"วัดดังๆในน่านมีอะไรบ้าง":           Activity,
		"น่านมีอุทยานหรือน้ำตกไหม":          Activity,
		"places to visit in Nan province":  Activity,
	}
	for text, want := range cases {
		assert.Equal(t, want, Classify(text), "text=%q", text)
	}
}

func TestScoresReported(t *testing.T) {
	decision := ClassifyWithHint("ไปเที่ยวน่าน", Hint{})
	assert.Equal(t, 0, decision.RestaurantPts)
	assert.Equal(t, 3, decision.ActivityPts)
}

func TestFollowUpKeepsPreviousIntent(t *testing.T) {
	decision := ClassifyWithHint("แล้วมีอีกไหม", Hint{Previous: Restaurant})
	assert.Equal(t, Restaurant, decision.Intent)
	assert.Equal(t, "follow-up", decision.Reason)
}

func TestFollowUpIgnoredWithNewDestination(t *testing.T) {
	decision := ClassifyWithHint("tell me about Nan", Hint{Previous: Restaurant, NewDestination: true})
	assert.Equal(t, GeneralTravel, decision.Intent)
}

func TestFollowUpIgnoredForLongUnrelatedMessage(t *testing.T) {
	text := "could you tell me something about the weather over there please"
	decision := ClassifyWithHint(text, Hint{Previous: Activity})
	assert.Equal(t, GeneralTravel, decision.Intent)
}

func TestFollowUpNeverOverridesOwnSignal(t *testing.T) {
	decision := ClassifyWithHint("มีที่เที่ยวอะไรน่าสนใจในน่าน", Hint{Previous: Restaurant})
	assert.Equal(t, Activity, decision.Intent)
}

func TestParse(t *testing.T) {
	assert.Equal(t, Restaurant, Parse("Restaurant"))
	assert.Equal(t, Activity, Parse(" activity "))
	assert.Equal(t, GeneralTravel, Parse("travel"))
	assert.Equal(t, GeneralTravel, Parse(""))
}

func TestEnglishTermsMatchOnWordStart(t *testing.T) {
	decision := ClassifyWithHint("Where is a great place to visit in Nan?", Hint{})
	assert.Equal(t, Activity, decision.Intent, "\"eat\" inside \"great\" is not a food cue")
	assert.Equal(t, "compound", decision.Reason)

	decision = ClassifyWithHint("Where is the theater?", Hint{})
	assert.Equal(t, GeneralTravel, decision.Intent)
	assert.Equal(t, 0, decision.RestaurantPts)

	assert.True(t, containsTerm("good restaurants in nan", "restaurant"))
	assert.False(t, containsTerm("the theater", "eat"))
	assert.True(t, containsTerm("great, let's eat", "eat"))
	assert.True(t, containsTerm("ร้านอาหารอร่อย", "อร่อย"))
}
