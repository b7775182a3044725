// Package gemini implements the full-capability provider adapter for the
// Gemini REST API: generation via generateContent, uploads via the Files
// API (with activation polling), and caching via cachedContents.
package gemini
