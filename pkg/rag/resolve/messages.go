package resolve

import "resume-qa-be/internal/entity"

var escalationMessages = map[entity.Language]string{
	entity.LanguageZhTW: "由於目前可查到的資料無法保證答案正確性。是否同意我先記錄下問題，再由本人進行回覆？麻煩再提供聯絡方式（稱呼/Email/電話/Line）。",
	entity.LanguageEn:   "I can't confirm an accurate answer from the information available. May I record your question so I can reply to you personally? Please leave your name and a way to reach you (email, phone or LINE).",
}

var outOfScopeMessages = map[entity.Language]string{
	entity.LanguageZhTW: "很抱歉，此問題超出我目前的知識範圍。為了讓本人能直接回覆您，請提供您的稱呼和一種聯絡方式（Email/電話/Line/Telegram）。",
	entity.LanguageEn:   "Sorry, that question is outside what I can answer here. So I can reply to you directly, please leave your name and one way to contact you (email, phone, LINE or Telegram).",
}

var clarifyFallback = map[entity.Language]string{
	entity.LanguageZhTW: "可以再多說明一點您想了解的部分嗎？",
	entity.LanguageEn:   "Could you tell me a bit more about what you would like to know?",
}

func localized(messages map[entity.Language]string, lang entity.Language) string {
	if msg, ok := messages[lang]; ok {
		return msg
	}
	return messages[entity.LanguageZhTW]
}

// escalationMessage is the fixed reply for every hand-off to a human.
func escalationMessage(reason string, lang entity.Language) string {
	if reason == entity.ReasonOutOfScope {
		return localized(outOfScopeMessages, lang)
	}
	return localized(escalationMessages, lang)
}
