// Package docs holds the OpenAPI description served at /docs.
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
        "/auth/register": {
            "post": {
                "description": "Register a new user and return an access token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Register input", "name": "input", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/httpserver.registerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.AuthResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "description": "Login with username and password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login input", "name": "input", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/httpserver.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.AuthResult"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Marks the user offline and revokes the presented token",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpserver.successResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Get currently logged in user details",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Get Current User",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.UserSummary"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Every registered user except the caller",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.UserSummary"}}}
                }
            }
        },
        "/users/{userID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get user",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.UserSummary"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/conversations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "The caller's conversations, most recently active first",
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "List conversations",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.ConversationSummary"}}}
                }
            }
        },
        "/conversations/start/{userID}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the conversation with the user, creating it if needed",
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Start conversation",
                "parameters": [
                    {"type": "string", "description": "Other user ID", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpserver.startConversationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/conversations/{conversationID}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Conversation history, oldest first",
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "List messages",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "conversationID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.MessageSummary"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "Send message",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "conversationID", "in": "path", "required": true},
                    {"description": "Message", "name": "input", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/httpserver.sendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.MessageSummary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        },
        "/conversations/{conversationID}/read": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Marks every message the caller received in the conversation as read",
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Mark conversation read",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "conversationID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpserver.successResponse"}}
                }
            }
        },
        "/messages/poll": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Messages sent or received by the caller after lastMessageId, oldest first",
                "produces": ["application/json"],
                "tags": ["messages"],
                "summary": "Poll messages",
                "parameters": [
                    {"type": "string", "description": "Cursor: ID of the last message already seen", "name": "lastMessageId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.MessageEvent"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpserver.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httpserver.errorResponse": {
            "type": "object",
            "properties": {"detail": {"type": "string"}}
        },
        "httpserver.successResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}}
        },
        "httpserver.registerRequest": {
            "type": "object",
            "required": ["displayName", "password", "username"],
            "properties": {
                "displayName": {"type": "string", "maxLength": 100},
                "password": {"type": "string", "maxLength": 72},
                "username": {"type": "string", "maxLength": 50}
            }
        },
        "httpserver.loginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "httpserver.sendMessageRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {"text": {"type": "string", "maxLength": 5000}}
        },
        "httpserver.startConversationResponse": {
            "type": "object",
            "properties": {"conversationId": {"type": "string"}}
        },
        "service.AuthResult": {
            "type": "object",
            "properties": {
                "displayName": {"type": "string"},
                "token": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "service.UserSummary": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"},
                "displayName": {"type": "string"},
                "lastSeen": {"type": "string"},
                "online": {"type": "boolean"},
                "userId": {"type": "string"}
            }
        },
        "service.ConversationSummary": {
            "type": "object",
            "properties": {
                "conversationId": {"type": "string"},
                "lastMessage": {"type": "string"},
                "otherUser": {"$ref": "#/definitions/service.UserSummary"},
                "timestamp": {"type": "string"},
                "unreadCount": {"type": "integer"}
            }
        },
        "service.MessageSummary": {
            "type": "object",
            "properties": {
                "messageId": {"type": "string"},
                "senderId": {"type": "string"},
                "status": {"type": "string"},
                "text": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "service.MessageEvent": {
            "type": "object",
            "properties": {
                "conversationId": {"type": "string"},
                "messageId": {"type": "string"},
                "senderId": {"type": "string"},
                "text": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "chatpoll API",
	Description:      "Direct-message backend with polling delivery.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
