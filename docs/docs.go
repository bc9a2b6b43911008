// Package docs registers the OpenAPI description served under /swagger.
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
        "/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.AuthResponse"}}, "409": {"description": "Conflict"}}
            }
        },
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}}, "401": {"description": "Unauthorized"}}
            }
        },
        "/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Revoke the current token",
                "responses": {"204": {"description": "No Content"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/user": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}}}
            }
        },
        "/boards": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["boards"],
                "summary": "List own boards",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.BoardResponse"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["boards"],
                "summary": "Create a board",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.BoardRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.BoardResponse"}}}
            }
        },
        "/boards/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["boards"],
                "summary": "Board with its tasks",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.BoardResponse"}}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["boards"],
                "summary": "Rename a board",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.BoardRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.BoardResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["boards"],
                "summary": "Delete a board and its tasks",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Tasks of a board grouped by status",
                "parameters": [{"type": "string", "name": "board_id", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LanesResponse"}}, "404": {"description": "Not Found"}, "422": {"description": "Unprocessable Entity"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Append a task to the end of its lane",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.CreateTaskRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.TaskResponse"}}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/tasks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Get a task",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TaskResponse"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Edit a task; a new status appends it to that lane",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.UpdateTaskRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.TaskResponse"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Delete a task and close the gap in its lane",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/tasks/{id}/move": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["tasks"],
                "summary": "Move a task within or across lanes",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.MoveTaskRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.MoveResponse"}}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}
            }
        }
    },
    "definitions": {
        "handler.RegisterRequest": {"type": "object", "required": ["email", "name", "password"], "properties": {"email": {"type": "string"}, "name": {"type": "string"}, "password": {"type": "string"}}},
        "handler.LoginRequest": {"type": "object", "required": ["email", "password"], "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "handler.UserResponse": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "email": {"type": "string"}}},
        "handler.AuthResponse": {"type": "object", "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/handler.UserResponse"}}},
        "handler.BoardRequest": {"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}},
        "handler.BoardResponse": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "user_id": {"type": "string"}, "created_at": {"type": "string"}, "updated_at": {"type": "string"}, "tasks": {"type": "array", "items": {"$ref": "#/definitions/handler.TaskResponse"}}}},
        "handler.CreateTaskRequest": {"type": "object", "required": ["board_id"], "properties": {"board_id": {"type": "string"}, "title": {"type": "string"}, "description": {"type": "string"}, "status": {"type": "string", "enum": ["todo", "in_progress", "done"]}}},
        "handler.UpdateTaskRequest": {"type": "object", "properties": {"title": {"type": "string"}, "description": {"type": "string"}, "status": {"type": "string", "enum": ["todo", "in_progress", "done"]}}},
        "handler.MoveTaskRequest": {"type": "object", "required": ["status", "position"], "properties": {"status": {"type": "string", "enum": ["todo", "in_progress", "done"]}, "position": {"type": "integer", "minimum": 0}}},
        "handler.TaskResponse": {"type": "object", "properties": {"id": {"type": "string"}, "board_id": {"type": "string"}, "title": {"type": "string"}, "description": {"type": "string"}, "status": {"type": "string"}, "position": {"type": "integer"}, "created_at": {"type": "string"}, "updated_at": {"type": "string"}}},
        "handler.LanesResponse": {"type": "object", "properties": {"todo": {"type": "array", "items": {"$ref": "#/definitions/handler.TaskResponse"}}, "in_progress": {"type": "array", "items": {"$ref": "#/definitions/handler.TaskResponse"}}, "done": {"type": "array", "items": {"$ref": "#/definitions/handler.TaskResponse"}}}},
        "handler.MoveResponse": {"type": "object", "properties": {"task": {"$ref": "#/definitions/handler.TaskResponse"}, "changed": {"type": "boolean"}, "shifted": {"type": "integer"}}}
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
	Title:            "Task Board API",
	Description:      "Boards with todo / in_progress / done lanes and dense task ordering.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
