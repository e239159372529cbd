// Package httpapi exposes the gateway over an OpenAI-compatible HTTP API
// built on gin.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /v1/models
//	POST /v1/ingest
//	POST /v1/chat/completions
//	POST /v1/:course_id/chat/completions
//	GET  /v1/courses
//	GET  /v1/courses/:course_id
//	PUT  /v1/courses/:course_id
//	GET  /v1/courses/:course_id/documents
//
// Errors use the OpenAI envelope {"error":{"message","type","code"}}.
package httpapi
