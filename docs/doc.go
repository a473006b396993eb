// Package docs provides generated OpenAPI documentation.
//
// Corpus API
//
//	@title			Corpus API
//	@version		1.0
//	@description	Multilingual document knowledge base API for managing resources, jobs, and entities.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/corpus-kb/corpus
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/corpus/serve.go -o ./swagger --parseDependency --parseInternal
