// Package docs registers the OpenAPI 2.0 document served under /swagger
// when SWAGGER_ENABLED is set. Regenerate from the handler annotations with:
//
//	swag init -g cmd/translator/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/translate": {
            "post": {
                "tags": ["Translation"],
                "summary": "Translate one content field",
                "operationId": "translateField",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Caller identity", "name": "X-User-ID", "in": "header"},
                    {"description": "Field to translate", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.TranslateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TranslateResponse"}},
                    "400": {"description": "Invalid input or language", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "402": {"description": "Quota exceeded", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Provider reply unusable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Provider rejected the request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Provider unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/entities": {
            "post": {
                "tags": ["Entities"],
                "summary": "Create a translatable entity",
                "operationId": "createEntity",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Caller identity", "name": "X-User-ID", "in": "header"},
                    {"description": "Entity", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateEntityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/entities/{id}": {
            "get": {
                "tags": ["Entities"],
                "summary": "Get an entity with its sections",
                "operationId": "getEntity",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Entity ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/entities/{id}/translations": {
            "get": {
                "tags": ["Entities"],
                "summary": "List stored translations of an entity",
                "operationId": "listEntityTranslations",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Entity ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Target language filter", "name": "lang", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/entities/{id}/translate": {
            "post": {
                "description": "Synchronous by default. With async=true the work is queued and a job ID is returned; progress is streamed on /ws. An Idempotency-Key makes retries return the first job.",
                "tags": ["Entities"],
                "summary": "Translate every field of an entity",
                "operationId": "translateEntity",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Client retry key", "name": "Idempotency-Key", "in": "header"},
                    {"type": "string", "description": "Entity ID", "name": "id", "in": "path", "required": true},
                    {"description": "Target language", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.TranslateEntityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handlers.JobAccepted"}},
                    "402": {"description": "Quota cannot cover every field", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Job queue full", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Get the state of a background translation job",
                "operationId": "getJob",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Stream job progress over a websocket",
                "operationId": "streamProgress",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "job_id", "in": "query", "required": true},
                    {"type": "string", "description": "Caller identity when the header cannot be set", "name": "user_id", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/languages": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List the language catalog",
                "operationId": "listLanguages",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "boolean", "default": true, "description": "Only active languages", "name": "active", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/languages/{source}/targets": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List target languages for a source language",
                "operationId": "availableTargetLanguages",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Source language code", "name": "source", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/schemas": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List content schemas",
                "operationId": "listSchemas",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/schemas/{category}": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Get the schema of one content category",
                "operationId": "getSchema",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Category", "name": "category", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/credits": {
            "get": {
                "tags": ["Credits"],
                "summary": "Get the caller's credit summary",
                "operationId": "creditsSummary",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/history": {
            "get": {
                "description": "Newest first. Supports a weak ETag through If-None-Match.",
                "tags": ["History"],
                "summary": "List the caller's translation history (paginated)",
                "operationId": "listHistory",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Return 304 if the ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Entity filter", "name": "entity_id", "in": "query"},
                    {"type": "string", "description": "Language filter", "name": "target_lang", "in": "query"},
                    {"type": "string", "description": "Verification status filter", "name": "status", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "headers": {"ETag": {"type": "string", "description": "Weak ETag of the filtered result"}}},
                    "304": {"description": "Not Modified"}
                }
            }
        },
        "/history/{id}/verify": {
            "post": {
                "tags": ["History"],
                "summary": "Approve or reject a translation",
                "operationId": "verifyTranslation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "History ID", "name": "id", "in": "path", "required": true},
                    {"description": "Verdict", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.VerifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Already approved or rejected", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "quota_exceeded"},
                "message": {"type": "string", "example": "translation quota exceeded"}
            }
        },
        "handlers.TranslateRequest": {
            "type": "object",
            "required": ["target_lang"],
            "properties": {
                "content": {"type": "object", "description": "A string or a JSON object"},
                "source_lang": {"type": "string", "example": "en"},
                "target_lang": {"type": "string", "example": "fr"},
                "category": {"type": "string", "example": "about"},
                "context": {"type": "string"},
                "entity_id": {"type": "string"},
                "field_key": {"type": "string"}
            }
        },
        "handlers.TranslateResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "data": {"type": "object"},
                "cached": {"type": "boolean"},
                "skipped": {"type": "boolean"},
                "history_id": {"type": "string"},
                "credits_used": {"type": "integer"},
                "credits_remaining": {"type": "integer"},
                "provider": {"type": "string"},
                "model": {"type": "string"}
            }
        },
        "handlers.CreateEntityRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string", "example": "Welcome"},
                "subtitle": {"type": "string"},
                "source_lang": {"type": "string", "example": "en"},
                "sections": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "category": {"type": "string", "example": "about"},
                            "content": {"type": "object"}
                        }
                    }
                }
            }
        },
        "handlers.TranslateEntityRequest": {
            "type": "object",
            "required": ["target_lang"],
            "properties": {
                "target_lang": {"type": "string", "example": "de"},
                "async": {"type": "boolean"}
            }
        },
        "handlers.JobAccepted": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string", "example": "queued"}
            }
        },
        "handlers.VerifyRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected"]},
                "feedback": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Translation API",
	Description:      "Content translation with AI providers, caching, credit quotas and quality review.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
