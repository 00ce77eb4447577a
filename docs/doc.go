// Package docs provides generated OpenAPI documentation.
//
// Deedflow API
//
//	@title			Deedflow API
//	@version		1.0
//	@description	Land document processing API for uploading scanned Tamil deeds and tracking their translation pipeline.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/mkandasamy/deedflow
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/deedflow/serve.go -o ./swagger --parseDependency --parseInternal
