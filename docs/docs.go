// Package docs registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/cutline/main.go -o docs
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
        "/v1/command": {
            "post": {
                "description": "Runs a natural-language editing command through intent classification, clarification, planning, validation and execution.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Submit a command",
                "parameters": [
                    {"description": "Command text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transport.CommandRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Outcome"}},
                    "400": {"description": "Invalid request body", "schema": {"type": "string"}},
                    "503": {"description": "Session stopped", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/choose": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Answer a target question",
                "parameters": [
                    {"description": "clips or tracks", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transport.ChooseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Outcome"}},
                    "400": {"description": "Unknown target", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/apply": {
            "post": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Apply the pending plan",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Outcome"}},
                    "409": {"description": "Nothing pending", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/discard": {
            "post": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Discard the pending plan",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Outcome"}},
                    "409": {"description": "Nothing pending", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/undo": {
            "post": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Undo the last applied command",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.Outcome"}}
                }
            }
        },
        "/v1/reset": {
            "post": {
                "tags": ["session"],
                "summary": "Reset the session",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/v1/mode": {
            "put": {
                "consumes": ["application/json"],
                "tags": ["session"],
                "summary": "Set execution mode",
                "parameters": [
                    {"description": "immediate or preview", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/transport.ModeRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Unknown mode", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/state": {
            "get": {
                "description": "Mode, planner, live selection context, history, pending plan and open clarification.",
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Session state",
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/v1/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Session history",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/history.Entry"}}}}
            }
        },
        "/v1/voice": {
            "post": {
                "description": "Accepts a JSON voice request (base64 audio) or raw audio bytes. The recording is screened, transcribed and submitted like text.",
                "consumes": ["application/json", "audio/wav", "audio/webm"],
                "produces": ["application/json"],
                "tags": ["voice"],
                "summary": "Submit a spoken command",
                "parameters": [
                    {"description": "Voice request", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}},
                    {"type": "string", "description": "ISO-639-1 language hint (raw uploads)", "name": "X-Cutline-Language", "in": "header"},
                    {"type": "string", "description": "none, text, audio or text+audio (raw uploads)", "name": "X-Cutline-Response-Mode", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Invalid request", "schema": {"type": "string"}},
                    "502": {"description": "Transcription failed", "schema": {"type": "string"}}
                }
            }
        },
        "/v1/plan": {
            "post": {
                "description": "Answers with the ok/error envelope used by the remote planner backend.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["planner"],
                "summary": "Plan a command (planner protocol)",
                "parameters": [
                    {"description": "Command with selection context", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Invalid request", "schema": {"type": "string"}},
                    "502": {"description": "Backend unreachable", "schema": {"type": "object"}}
                }
            }
        }
    },
    "definitions": {
        "transport.CommandRequest": {
            "type": "object",
            "properties": {"text": {"type": "string"}, "voice": {"type": "boolean"}}
        },
        "transport.ChooseRequest": {
            "type": "object",
            "properties": {"target": {"type": "string"}}
        },
        "transport.ModeRequest": {
            "type": "object",
            "properties": {"mode": {"type": "string"}}
        },
        "history.Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "role": {"type": "string"},
                "text": {"type": "string"},
                "at": {"type": "string"}
            }
        },
        "tool.ToolCall": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "args": {"type": "object"}}
        },
        "session.Outcome": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "error_kind": {"type": "string"},
                "question": {"type": "string"},
                "target_choice": {"type": "boolean"},
                "preview": {"type": "string"},
                "diff": {"type": "string"},
                "tool_calls": {"type": "array", "items": {"$ref": "#/definitions/tool.ToolCall"}},
                "mutations": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "cutline API",
	Description:      "Natural-language audio editing commands turned into validated, reversible DAW edits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
