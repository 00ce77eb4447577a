package endpoints

import (
	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/internal/mongo"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// MongoManager is nil when running against an external URI or the
	// in-memory store.
	MongoManager    *mongo.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{MongoManager: cfg.MongoManager},

		// Document processing
		&ProcessEndpoint{},
		&ProcessMultipleEndpoint{},
		&StreamEndpoint{},
		&DocumentStatusEndpoint{},
		&GetDocumentEndpoint{},
		&DeleteDocumentEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
