package endpoints

import (
	"github.com/corpus-kb/corpus/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Resource endpoints
		&UploadResourceEndpoint{},
		&ListResourcesEndpoint{},
		&GetResourceEndpoint{},
		&DeleteResourceEndpoint{},
		&ResourceEntitiesEndpoint{},
		&ResourcePendingEndpoint{},
		&ConfirmEntitiesEndpoint{},
		&SummarizeEndpoint{},
		&KeyPointsEndpoint{},
		&KeywordsEndpoint{},
		&AskEndpoint{},

		// Job endpoints
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&UpdateJobEndpoint{},
		&DeleteJobEndpoint{},

		// Entity endpoints
		&ListEntitiesEndpoint{},
		&GetEntityEndpoint{},
		&UpdateEntityEndpoint{},
		&MergeEntitiesEndpoint{},
		&DeleteEntityEndpoint{},

		// Pending entity endpoints
		&MergePendingEndpoint{},
		&CancelMergeEndpoint{},
		&DeletePendingEndpoint{},

		// Websocket notifications
		&WSEndpoint{},
	}
}

// ResourceCommands returns endpoints for resource operations.
// This groups resource-related commands under the "resources" subcommand.
func ResourceCommands() []api.Endpoint {
	return []api.Endpoint{
		&UploadResourceEndpoint{},
		&ListResourcesEndpoint{},
		&GetResourceEndpoint{},
		&DeleteResourceEndpoint{},
		&ResourceEntitiesEndpoint{},
		&ResourcePendingEndpoint{},
		&ConfirmEntitiesEndpoint{},
		&SummarizeEndpoint{},
		&KeyPointsEndpoint{},
		&KeywordsEndpoint{},
		&AskEndpoint{},
	}
}

// JobCommands returns endpoints for job operations.
// This groups job-related commands under the "jobs" subcommand.
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&UpdateJobEndpoint{},
		&DeleteJobEndpoint{},
	}
}

// EntityCommands returns endpoints for entity operations.
// This groups entity-related commands under the "entities" subcommand.
func EntityCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListEntitiesEndpoint{},
		&GetEntityEndpoint{},
		&UpdateEntityEndpoint{},
		&MergeEntitiesEndpoint{},
		&DeleteEntityEndpoint{},
	}
}

// PendingCommands returns endpoints for pending entity operations.
// This groups pending-related commands under the "pending" subcommand.
func PendingCommands() []api.Endpoint {
	return []api.Endpoint{
		&MergePendingEndpoint{},
		&CancelMergeEndpoint{},
		&DeletePendingEndpoint{},
	}
}
