package flow

import "github.com/HRSPROJECT/studybuddy-ai/internal/schema"

// Output contracts, one per flow. Describe() of each is embedded into the
// corresponding prompt so the model targets the same shape that Validate()
// later enforces.
var (
	answerSchema = schema.Object(
		schema.Req("answerText", schema.NonEmptyString()),
	)

	summarySchema = schema.Object(
		schema.Req("summary", schema.NonEmptyString()),
	)

	studyPlanSchema = schema.Object(
		schema.Opt("planTitle", schema.String()),
		schema.Req("dailySessions", schema.Array(schema.Object(
			schema.Req("date", schema.NonEmptyString()),
			schema.Req("sessions", schema.Array(schema.Object(
				schema.Req("date", schema.NonEmptyString()),
				schema.Req("startTime", schema.NonEmptyString()),
				schema.Req("endTime", schema.NonEmptyString()),
				schema.Req("subject", schema.String()),
				schema.Req("activity", schema.NonEmptyString()),
				schema.OptDefault("isBreak", schema.Bool(), false),
			))),
		))),
		schema.Opt("summaryNotes", schema.String()),
	)

	generateTestSchema = schema.Object(
		schema.Req("questions", schema.ArrayMin(schema.Object(
			schema.Opt("id", schema.String()),
			schema.Req("type", schema.Enum("subjective", "objective")),
			schema.Req("questionText", schema.NonEmptyString()),
			schema.Opt("options", schema.Array(schema.Object(
				schema.Opt("id", schema.String()),
				schema.Req("text", schema.NonEmptyString()),
			))),
			schema.Opt("correctAnswerKey", schema.String()),
			schema.Opt("correctAnswerText", schema.String()),
		), 1)),
	)

	analyzeTestSchema = schema.Object(
		schema.Opt("overallScore", schema.Nullable(schema.NumberRange(0, 100))),
		schema.Req("overallFeedback", schema.NonEmptyString()),
		schema.Req("questionAnalyses", schema.ArrayMin(schema.Object(
			schema.Req("questionId", schema.NonEmptyString()),
			schema.Req("questionText", schema.NonEmptyString()),
			schema.Req("userAnswerText", schema.String()),
			schema.Opt("correctAnswerText", schema.String()),
			schema.Req("isCorrect", schema.Bool()),
			schema.Req("feedback", schema.NonEmptyString()),
			schema.Opt("suggestedScoreOutOfTen", schema.Nullable(schema.NumberRange(0, 10))),
		), 1)),
	)

	flashcardBatchSchema = schema.Object(
		schema.Req("flashcards", schema.ArrayMin(schema.Object(
			schema.Req("questionText", schema.NonEmptyString()),
			schema.Req("answerText", schema.NonEmptyString()),
		), 1)),
	)
)
