// Package docs registers the OpenAPI description of the stickerd API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReadyResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.ReadyResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "tags": ["Health"],
                "summary": "Get API version",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}}
            }
        },
        "/{fileId}": {
            "get": {
                "tags": ["Images"],
                "summary": "Serve a sticker image",
                "produces": ["image/png", "image/jpeg", "image/gif", "image/webp", "image/svg+xml"],
                "parameters": [
                    {"type": "string", "description": "Drive file id", "name": "fileId", "in": "path", "required": true},
                    {"type": "integer", "description": "Requested width in pixels", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}, "headers": {"X-Image-Strategy": {"type": "string"}}}}
            }
        },
        "/i/{fileId}": {
            "get": {
                "tags": ["Images"],
                "summary": "Serve a sticker image",
                "parameters": [
                    {"type": "string", "description": "Drive file id", "name": "fileId", "in": "path", "required": true},
                    {"type": "integer", "description": "Requested width in pixels", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/api/images/{fileId}": {
            "get": {
                "tags": ["Images"],
                "summary": "Serve a sticker image",
                "parameters": [
                    {"type": "string", "description": "Drive file id", "name": "fileId", "in": "path", "required": true},
                    {"type": "integer", "description": "Requested width in pixels", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/images/cache/clear": {
            "post": {
                "security": [{"AdminToken": []}],
                "tags": ["Images"],
                "summary": "Clear image cache",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.CacheClearResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/sync": {
            "post": {
                "security": [{"AdminToken": []}],
                "tags": ["Sync"],
                "summary": "Trigger a Drive sync",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Sync options", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/http.SyncRequest"}},
                    {"type": "string", "description": "full or incremental", "name": "kind", "in": "query"},
                    {"type": "boolean", "description": "Register the push channel afterwards", "name": "register_webhook", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SyncTriggerResult"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/domain.SyncTriggerResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "No change-feed baseline", "schema": {"$ref": "#/definitions/domain.SyncTriggerResult"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/domain.SyncTriggerResult"}},
                    "503": {"description": "Drive not configured", "schema": {"$ref": "#/definitions/domain.SyncTriggerResult"}}
                }
            }
        },
        "/api/v1/sync/status": {
            "get": {
                "tags": ["Sync"],
                "summary": "Sync status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SyncStatusReport"}}}
            }
        },
        "/api/v1/sync/runs": {
            "get": {
                "security": [{"AdminToken": []}],
                "tags": ["Sync"],
                "summary": "List sync runs",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "description": "Maximum number of runs (default 20)", "name": "limit", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SyncRun"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/webhooks/drive": {
            "get": {
                "tags": ["Webhooks"],
                "summary": "Webhook verification",
                "produces": ["text/plain"],
                "parameters": [{"type": "string", "description": "Challenge to echo", "name": "challenge", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "string"}}}
            },
            "post": {
                "tags": ["Webhooks"],
                "summary": "Drive push notification",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-Goog-Channel-ID", "in": "header"},
                    {"type": "string", "name": "X-Goog-Resource-State", "in": "header"},
                    {"type": "string", "name": "X-Goog-Resource-ID", "in": "header"},
                    {"type": "string", "name": "X-Goog-Channel-Token", "in": "header"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.WebhookOutcome"}}}
            }
        },
        "/api/v1/webhooks/drive/register": {
            "post": {
                "security": [{"AdminToken": []}],
                "tags": ["Webhooks"],
                "summary": "Register Drive push channel",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.WebhookChannel"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string", "example": "invalid sync kind"}}},
        "http.StatusResponse": {"type": "object", "properties": {"status": {"type": "string", "example": "ok"}}},
        "http.ReadyResponse": {"type": "object", "properties": {"status": {"type": "string"}, "checks": {"type": "object", "additionalProperties": {"type": "string"}}}},
        "http.VersionResponse": {"type": "object", "properties": {"version": {"type": "string"}}},
        "http.SyncRequest": {"type": "object", "properties": {"kind": {"type": "string", "example": "incremental"}, "register_webhook": {"type": "boolean"}, "async": {"type": "boolean"}}},
        "http.CacheClearResponse": {"type": "object", "properties": {"status": {"type": "string", "example": "cleared"}, "entries_removed": {"type": "integer"}}},
        "domain.SyncTriggerResult": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["started", "already_syncing", "throttled", "synced", "error"]},
                "kind": {"type": "string"},
                "itemsSynced": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "nextSyncIn": {"type": "integer"},
                "message": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "domain.SyncStatusReport": {"type": "object", "properties": {"lastSync": {"type": "string", "format": "date-time"}, "isSyncing": {"type": "boolean"}, "throttleSeconds": {"type": "integer"}}},
        "domain.SyncRun": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "status": {"type": "string"},
                "items_synced": {"type": "integer"},
                "errors": {"type": "string"},
                "started_at": {"type": "string", "format": "date-time"},
                "completed_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.WebhookOutcome": {"type": "object", "properties": {"status": {"type": "string"}, "sync": {"$ref": "#/definitions/domain.SyncTriggerResult"}}},
        "domain.WebhookChannel": {"type": "object", "properties": {"id": {"type": "string"}, "resource_id": {"type": "string"}, "expiration": {"type": "string", "format": "date-time"}}}
    },
    "securityDefinitions": {
        "AdminToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Love Facts Stickers API",
	Description:      "Drive sticker ingestion and resilient image proxy.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
