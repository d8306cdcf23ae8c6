// Message assembly: one system message carrying the mode persona plus any
// loaded context, followed by the full conversation history.

package session

import "ecochat/llm"

// PromptSource resolves the configured system prompt for a mode, falling
// back to the given default when no override exists.
type PromptSource interface {
	SystemPrompt(mode, fallback string) string
}

// modeProfile bundles everything mode-specific about message assembly:
// the prompt key, the hardcoded fallback persona, the context banner
// label, and how loaded context is folded into the system message.
type modeProfile struct {
	promptKey    string
	fallback     string
	contextLabel string
	joinContext  func(base, blob string) string
}

const defaultChatPrompt = "You are a helpful assistant for a research study on how people use large " +
	"language models.\n" +
	"For now, do NOT create, describe, or suggest any charts, graphs, plots, " +
	"figures, or other visualizations. If the user asks for a chart, respond " +
	"with a written/text explanation instead."

const documentIntro = "You have access to the following documents. Use them to answer " +
	"questions when relevant. If the documents don't contain the answer, " +
	"use your general knowledge to help the user.\n" +
	"When citing information from documents, mention which document you " +
	"are referencing.\n\n"

const defaultCodingPrompt = `You are an expert software development assistant specializing in code generation, debugging, and optimization.

Your core capabilities:
- Write clean, efficient, production-ready code
- Debug errors and explain what went wrong
- Optimize existing code for performance and readability
- Explain complex programming concepts clearly
- Follow best practices and design patterns
- Generate complete, functional code solutions
- Review code and suggest improvements
- Help with algorithms, data structures, and architecture

Code formatting rules:
- Always use proper markdown code blocks with language tags (` + "```python, ```javascript" + `, etc.)
- Provide complete, runnable code when possible
- Include helpful comments for complex logic
- Show both the code AND explain your approach when helpful

When debugging:
- Identify the root cause of errors
- Explain why the error occurred
- Provide the corrected code
- Suggest how to prevent similar issues

Be concise but thorough. Focus on solving the actual problem.`

const defaultVisionPrompt = `You are an expert image analysis assistant with advanced vision capabilities.

Your role is to:
- Provide detailed, accurate descriptions of images
- Identify objects, people, scenes, and activities
- Analyze composition, colors, lighting, and visual elements
- Read and extract text from images (OCR)
- Detect patterns, logos, symbols, and signs
- Assess image quality and technical aspects
- Answer specific questions about image content
- Compare multiple images when provided

Be thorough, precise, and objective in your analysis. When uncertain, acknowledge limitations rather than guessing.`

const defaultWebPrompt = `You are a helpful AI assistant with access to web search.
When you need current information, use the web_search tool.
When you need to read a specific webpage, use the web_fetch tool.
Be concise and accurate in your responses.
`

var chatProfile = modeProfile{
	promptKey:    "chat",
	fallback:     defaultChatPrompt,
	contextLabel: "Document",
	joinContext: func(base, blob string) string {
		return base + "\n\n" + documentIntro + blob
	},
}

var codingProfile = modeProfile{
	promptKey:    "vibe_coding",
	fallback:     defaultCodingPrompt,
	contextLabel: "Code file",
	joinContext: func(base, blob string) string {
		return base + "\n\nYou also have the following code context loaded. Use it when helpful:\n" + blob
	},
}

var visionProfile = modeProfile{
	promptKey: "image",
	fallback:  defaultVisionPrompt,
}

var webProfile = modeProfile{
	promptKey: "web",
	fallback:  defaultWebPrompt,
}

// systemPrompt resolves the persona for a profile, honoring overrides.
func systemPrompt(src PromptSource, p modeProfile) string {
	if src == nil {
		return p.fallback
	}
	return src.SystemPrompt(p.promptKey, p.fallback)
}

// buildMessages assembles the wire messages for one turn: a single system
// message (persona, plus context blob if any), then the history verbatim.
// Pure read; never mutates session state.
func buildMessages(p modeProfile, src PromptSource, store *ContextStore, history []llm.ChatMessage) []llm.ChatMessage {
	system := systemPrompt(src, p)
	if store != nil && !store.Empty() && p.joinContext != nil {
		system = p.joinContext(system, store.Text())
	}

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(system))
	messages = append(messages, history...)
	return messages
}
