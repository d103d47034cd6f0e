// Package docs holds the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "CourtFetch Maintainers",
            "url": "https://github.com/raysh454/courtfetch"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/captcha/new": {
            "get": {
                "description": "Opens a portal session and returns its CAPTCHA image.",
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Start a lookup session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.ChallengeResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/search": {
            "post": {
                "description": "Answers the session's challenge and returns the case record.",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Submit a case search",
                "parameters": [
                    {"description": "Search", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.SearchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.SearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/download": {
            "get": {
                "description": "Proxies a document from the court's host. Falls back to a redirect when the proxy fails.",
                "produces": ["application/pdf"],
                "tags": ["orders"],
                "summary": "Download an order document",
                "parameters": [
                    {"type": "string", "description": "Document URL", "name": "url", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "302": {"description": "redirect to the document", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/queries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "List recent searches",
                "parameters": [
                    {"type": "integer", "description": "Maximum entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/audit.Query"}}}
                }
            }
        },
        "/queries/{queryID}/page": {
            "get": {
                "produces": ["text/html"],
                "tags": ["history"],
                "summary": "Raw portal page of a successful search",
                "parameters": [
                    {"type": "string", "description": "Query ID", "name": "queryID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/queries/{queryID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Get one search with its orders",
                "parameters": [
                    {"type": "string", "description": "Query ID", "name": "queryID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.QueryDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "audit.Query": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "session_id": {"type": "string"},
                "court": {"type": "string"},
                "case_type": {"type": "string"},
                "case_number": {"type": "string"},
                "filing_year": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "success", "error"]},
                "error": {"type": "string"},
                "found": {"type": "boolean"},
                "created_at": {"type": "string"},
                "completed_at": {"type": "string"}
            }
        },
        "extract.OrderLink": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "title": {"type": "string"},
                "pdf_url": {"type": "string"}
            }
        },
        "extract.Parties": {
            "type": "object",
            "properties": {
                "petitioner": {"type": "string"},
                "respondent": {"type": "string"}
            }
        },
        "extract.CaseRecord": {
            "type": "object",
            "properties": {
                "found": {"type": "boolean"},
                "parties": {"$ref": "#/definitions/extract.Parties"},
                "filing_date": {"type": "string"},
                "next_hearing_date": {"type": "string"},
                "orders": {"type": "array", "items": {"$ref": "#/definitions/extract.OrderLink"}}
            }
        },
        "server.ChallengeResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string", "example": "2f1b6c9e-8d0a-4c55-9a57-0f3c0b8f7d11"},
                "image_data_url": {"type": "string", "example": "data:image/png;base64,iVBORw0KGgo..."},
                "expires_at": {"type": "string", "example": "2024-11-14T10:30:00Z"}
            }
        },
        "server.SearchRequest": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "case_type": {"type": "string", "example": "CRL"},
                "case_number": {"type": "string", "example": "123"},
                "filing_year": {"type": "string", "example": "2024"},
                "captcha": {"type": "string", "example": "K7pQ2m"}
            }
        },
        "server.SearchResponse": {
            "type": "object",
            "properties": {
                "query_id": {"type": "string"},
                "record": {"$ref": "#/definitions/extract.CaseRecord"},
                "most_recent_order": {"$ref": "#/definitions/extract.OrderLink"},
                "final_url": {"type": "string"}
            }
        },
        "server.QueryDetails": {
            "type": "object",
            "properties": {
                "query": {"$ref": "#/definitions/audit.Query"},
                "orders": {"type": "array", "items": {"$ref": "#/definitions/extract.OrderLink"}}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "kind": {"type": "string", "example": "session_not_found"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CourtFetch API",
	Description:      "Case-status lookups against a court portal: request a challenge, answer it with the case details, read the record back.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
