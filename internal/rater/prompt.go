package rater

import "fmt"

// CombineTranscripts joins an original answer and its clarification under
// clear delimiters for a second scoring pass.
func CombineTranscripts(original, clarification string) string {
	return fmt.Sprintf("[Original response]\n%s\n\n[Clarification response]\n%s",
		original, clarification)
}

// buildUserMessage assembles the scoring request body: criterion context,
// the question that was asked, and the patient's transcribed answer.
func buildUserMessage(transcript, criterionDescription, followupQuestion, language string) string {
	return fmt.Sprintf(`## Criterion
%s

## Interview Question Asked
%s

## Patient Transcript (language: %s)
%s

## Instructions
Rate this criterion based on the transcript above. Respond with JSON only.`,
		criterionDescription, followupQuestion, language, transcript)
}
