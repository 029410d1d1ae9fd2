// Package docs provides generated OpenAPI documentation.
//
// Storyteller API
//
//	@title			Storyteller API
//	@version		1.0
//	@description	Book analysis pipeline API for ingesting books and running checkpointed multi-pass analysis.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:9170
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g ../cmd/storyteller/serve.go -o ./swagger --parseDependency --parseInternal
