package catalog

import (
	"fmt"

	"diagnostic-quiz-service/internal/domain"
)

const imageBase = "https://dvv8w2q8s3qot.cloudfront.net/website_images/assets/male/"

// Fallback returns the bundled question set used when the backend cannot
// serve reference data.
func Fallback() *Catalog {
	return New(FallbackQuestions(), FallbackCategories())
}

// FallbackCategories are the bundled sections.
func FallbackCategories() []domain.Category {
	return []domain.Category{
		{ID: "cat-1", Title: "About", Subtitle: "You", Order: 1},
		{ID: "cat-2", Title: "Hair", Subtitle: "Health", Order: 2},
		{ID: "cat-3", Title: "Internal", Subtitle: "Health", Order: 3},
		{ID: "cat-4", Title: "Scalp", Subtitle: "Assessment", Order: 4},
	}
}

// FallbackQuestions are the bundled questions; each call returns a fresh slice.
func FallbackQuestions() []domain.Question {
	return []domain.Question{
		{
			ID: domain.QuestionIDName, Section: 1, Order: 1, Type: domain.QuestionText, Required: true,
			Prompt:     "Before we start, can we get your name?",
			Disclaimer: "*Your data is safe with us. We follow strict security measures to protect your privacy and never share your information without consent.",
		},
		{
			ID: domain.QuestionIDPhone, Section: 1, Order: 2, Type: domain.QuestionText, Required: true,
			Prompt:     "Phone Number",
			Disclaimer: "*Your contact details will be used by your hair coach to reach out to you via call/sms/whatsapp.",
		},
		{
			ID: "gender", Section: 1, Order: 3, Type: domain.QuestionGender, Required: true,
			Prompt:  "Gender",
			Options: options("male", "Male", "female", "Female"),
		},
		{
			ID: "hair-loss-stage", Section: 2, Order: 1, Type: domain.QuestionImage, Required: true,
			Prompt: "Which image best describes your hair loss?",
			Options: []domain.Option{
				stageOption(1, "stage-1", "Stage-1", "stage1"),
				stageOption(2, "stage-2", "Stage-2", "stage2"),
				stageOption(3, "stage-3", "Stage-3", "stage3"),
				stageOption(4, "stage-4", "Stage-4", "stage4"),
				stageOption(5, "stage-5", "Stage-5", "stage5"),
				stageOption(6, "stage-6", "Stage-6", "stage6"),
				stageOption(7, "coin-size-patch", "Coin Size Patch", "coinSizePatch"),
				stageOption(8, "heavy-hair-fall", "Heavy Hair Fall", "heavyHairFall"),
			},
		},
		{
			ID: "dandruff", Section: 2, Order: 2, Type: domain.QuestionSingle, Required: true,
			Prompt: "Do you have dandruff?",
			Options: append(options(
				"no", "No",
				"mild", "Mild dandruff (small white flakes)",
				"heavy", "Heavy dandruff (sticky dandruff found in nails on scratching or visible on clothes)",
			), domain.Option{
				ID: "psoriasis", Value: "psoriasis", Order: 4,
				Label:    "Diagnosed with Psoriasis / Seborrheic Dermatitis",
				SubLabel: "A skin condition that causes red, dry patches on your scalp.",
			}),
		},
		{
			ID: "sleep", Section: 3, Order: 1, Type: domain.QuestionSingle, Required: true,
			Prompt: "How well do you sleep?",
			Options: options(
				"peaceful", "Very peacefully for 6-8 hours",
				"disturbed", "Disturbed sleep (wake up multiple times at night)",
				"difficulty", "Difficulty falling asleep",
			),
		},
		{
			ID: "stress", Section: 3, Order: 2, Type: domain.QuestionSingle, Required: true,
			Prompt: "How stressed are you?",
			Options: options(
				"none", "None",
				"low", "Low",
				"moderate", "Moderate (work, family etc)",
				"high", "High (Loss of close one, separation, home, illness)",
			),
		},
		{
			ID: "constipation", Section: 3, Order: 3, Type: domain.QuestionSingle, Required: true,
			Prompt: "Do you feel constipated?",
			Options: options(
				"no", "No / Once in a while",
				"yes", "Yes (fewer than 3 stools a week)",
				"unable", "Unable to pass stool properly / feeling unsatisfied after passing stools",
				"ibs", "Suffering from Irritable Bowel Syndrome",
			),
		},
		{
			ID: "gas", Section: 3, Order: 4, Type: domain.QuestionSingle, Required: true,
			Prompt: "Do you have Gas, Acidity or Bloating?",
			Options: options(
				"no", "No",
				"sometimes", "Sometimes (1-2 times a week or when I eat out)",
				"often", "Often (3+ times a week)",
			),
		},
		{
			ID: "energy", Section: 3, Order: 5, Type: domain.QuestionSingle, Required: true,
			Prompt: "How are your energy levels during the day?",
			Options: options(
				"high", "Always high / Normal energy levels throughout the day",
				"low-morning", "Low when I wake up, then gradually increase",
				"low-afternoon", "Very low in the afternoon",
				"low-evening", "Low by evening/night",
				"always-low", "Always low",
			),
		},
		{
			ID: "supplements", Section: 3, Order: 6, Type: domain.QuestionSingle, Required: true,
			Prompt:  "Are you currently taking any supplements or vitamins for hair?",
			Options: options("yes", "Yes", "no", "No"),
		},
		{
			ID: "scalp-photo", Section: 4, Order: 1, Type: domain.QuestionUpload,
			Prompt: "Upload your scalp picture, for our hair experts to check.",
		},
	}
}

// options builds options from value/label pairs.
func options(pairs ...string) []domain.Option {
	out := make([]domain.Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Option{
			ID:    pairs[i],
			Value: pairs[i],
			Label: pairs[i+1],
			Order: i/2 + 1,
		})
	}
	return out
}

func stageOption(order int, value, label, dir string) domain.Option {
	return domain.Option{
		ID:    value,
		Value: value,
		Label: label,
		Order: order,
		Images: []string{
			fmt.Sprintf("%s%s/image_m_1.webp", imageBase, dir),
			fmt.Sprintf("%s%s/image_m_2.webp", imageBase, dir),
		},
	}
}
