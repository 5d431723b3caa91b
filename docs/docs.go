// Package docs is generated by swag init from the handler annotations.
// Regenerate with: swag init -g cmd/server/main.go
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
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Exchange credentials for a bearer token",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Create an account",
                "parameters": [
                    {"description": "Account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/issues": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Issues"],
                "summary": "Create an issue at the end of its column, or at order",
                "parameters": [
                    {"description": "Issue", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateIssueRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.IssueResponse"}}
                }
            }
        },
        "/api/issues/{id}/reorder": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Issues"],
                "summary": "Move an issue within its column or to another status column",
                "parameters": [
                    {"type": "string", "description": "Issue ID", "name": "id", "in": "path", "required": true},
                    {"description": "Target position", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ReorderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.IssueResponse"}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/projects": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Projects"],
                "summary": "Create a project owned by the caller",
                "parameters": [
                    {"description": "Project", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateProjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.ProjectResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.AuthResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/handler.UserResponse"}
            }
        },
        "handler.CreateIssueRequest": {
            "type": "object",
            "required": ["project", "title"],
            "properties": {
                "assignee": {"type": "string"},
                "description": {"type": "string"},
                "dueDate": {"type": "string"},
                "order": {"type": "integer", "minimum": 0},
                "priority": {"type": "string"},
                "project": {"type": "string"},
                "status": {"type": "string"},
                "title": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "handler.CreateProjectRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "description": {"type": "string"},
                "endDate": {"type": "string"},
                "lead": {"type": "string"},
                "members": {"type": "array", "items": {"type": "string"}},
                "name": {"type": "string"},
                "priority": {"type": "string"},
                "startDate": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "handler.IssueResponse": {
            "type": "object",
            "properties": {
                "assignee": {"$ref": "#/definitions/handler.UserResponse"},
                "createdAt": {"type": "string"},
                "createdBy": {"$ref": "#/definitions/handler.UserResponse"},
                "description": {"type": "string"},
                "dueDate": {"type": "string"},
                "id": {"type": "string"},
                "order": {"type": "integer"},
                "priority": {"type": "string"},
                "project": {"$ref": "#/definitions/handler.ProjectRef"},
                "status": {"type": "string"},
                "title": {"type": "string"},
                "type": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.ProjectRef": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "handler.ProjectResponse": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "createdBy": {"$ref": "#/definitions/handler.UserResponse"},
                "description": {"type": "string"},
                "endDate": {"type": "string"},
                "id": {"type": "string"},
                "lead": {"$ref": "#/definitions/handler.UserResponse"},
                "members": {"type": "array", "items": {"$ref": "#/definitions/handler.UserResponse"}},
                "name": {"type": "string"},
                "priority": {"type": "string"},
                "startDate": {"type": "string"},
                "status": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "handler.RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.ReorderRequest": {
            "type": "object",
            "properties": {
                "order": {"type": "integer", "minimum": 0},
                "status": {"type": "string"}
            }
        },
        "handler.UserResponse": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Issue Tracker API",
	Description:      "Projects, issues on Kanban boards, and threaded comments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
