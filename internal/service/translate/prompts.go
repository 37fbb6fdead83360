package translate

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const translateSystemPrompt = `You are a translation engine inside a chat application. Reply with the translated message only, without quotes, notes or explanations.`

const translateUserPrompt = `Translate the following message from {sourceLanguage} to {targetLanguage}:

{text}`

const transliterateSystemPrompt = `You are a transliteration engine inside a chat application. Reply with the transliterated message only, written in English letters.`

const transliterateUserPrompt = `Translate the following sentence from {sourceLanguage} to {targetLanguage}, but output it in English letters (transliteration). Respond only with the transliterated message.

Example for Hindi:
Input: "How are you?"
Output: "Aap kaise hain?"

Example for Kannada:
Input: "How are you?"
Output: "Neevu hegiddeera?"

Example for Telugu:
Input: "How are you?"
Output: "Meeru ela unnaru?"

Your turn:
Input: "{text}"
Output:`

func newTemplate(op string) prompt.ChatTemplate {
	if op == OpTransliterate {
		return prompt.FromMessages(
			schema.FString,
			schema.SystemMessage(transliterateSystemPrompt),
			schema.UserMessage(transliterateUserPrompt),
		)
	}

	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(translateSystemPrompt),
		schema.UserMessage(translateUserPrompt),
	)
}
