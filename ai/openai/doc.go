// Package openai implements the ai interfaces over OpenAI-compatible HTTP
// APIs (OpenAI, Groq, Ollama, vLLM and similar). Structured calls run in
// JSON mode at temperature 0 with best-effort repair of malformed model
// output; narrative calls stream token fragments through a callback.
package openai
