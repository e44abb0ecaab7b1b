package models

import "strings"

// QAPromptTemplate constrains the model to answer as a TCM practitioner,
// strictly from the retrieved context. Two slots: {context} and {query}.
const QAPromptTemplate = "上下文信息如下（中医典籍/诊疗指南）：\n" +
	"---------------------\n" +
	"{context}\n" +
	"---------------------\n" +
	"请严格根据上下文，以专业中医医师的角度回答以下问题，回答需严谨、简洁，符合中医辨证逻辑：\n" +
	"Query: {query}\n" +
	"Answer: "

// EmptyQueryReply is returned to the user when the question is blank;
// the generation endpoint is never called in that case.
const EmptyQueryReply = "请输入你的中医症状问题，我才能帮你辨证哦～"

// DemoQuery is the fixed question issued by the console driver.
const DemoQuery = "不耐疲劳，口燥、咽干可能是哪些证候？"

// ContextSeparator joins retrieved chunks into the {context} slot.
const ContextSeparator = "\n\n"

// RenderPrompt substitutes the retrieved context and the user query into
// the QA template. Plain substitution, no escaping or truncation: an
// over-long prompt is the generation endpoint's problem to reject.
func RenderPrompt(contextStr, query string) string {
	r := strings.NewReplacer("{context}", contextStr, "{query}", query)
	return r.Replace(QAPromptTemplate)
}
