// Package docs holds the Swagger document served at /swagger/
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
		"/api/v1/activity.List": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"activity"
				],
				"summary": "List activities",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Activities of the signed-in user, most recent first",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/activity.Get": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"activity"
				],
				"summary": "Get an activity",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/activity.Delete": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"activity"
				],
				"summary": "Delete an activity",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/auth.Register": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Create an account",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Register with email and password and receive a bearer token"
			}
		},
		"/api/v1/auth.Login": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Sign in",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Sign in with email and password. Errors distinguish unknown email, wrong password and invalid email."
			}
		},
		"/api/v1/auth.Me": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Current user",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/auth.Logout": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Sign out",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Clears the user's local state and abandons any running session",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/auth.UpdateProfile": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Rename the signed-in user",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/profile.Get": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"profile"
				],
				"summary": "Profile and all-time stats",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "User, stats derived from the local activity list and the remote totals counters",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/server.Info": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"server"
				],
				"summary": "Server information",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				}
			}
		},
		"/api/v1/server.Ping": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"server"
				],
				"summary": "Liveness probe",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				}
			}
		},
		"/api/v1/session.Start": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Start recording",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Starts the clock and position sampling. A denied location permission degrades the session to duration-only tracking.",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/session.PushFix": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Push a position fix",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Feeds one device fix into the running session. accepted is false when the distance filter or fastest interval dropped it, or when the session runs without location permission.",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/session.ReportError": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Report a location error",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Records a transient device location error. The session keeps running.",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/session.Stop": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Stop recording",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Stops the session. Insignificant sessions are not saved. A failed save keeps the activity pending for session.Retry.",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/session.Status": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Session status",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/session.Retry": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Retry pending saves",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"description": "Re-attempts saving activities whose save failed, oldest first",
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/session.Discard": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Discard pending saves",
				"parameters": [
					{
						"description": "JSON-RPC 2.0 request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "JSON-RPC 2.0 response",
						"schema": {
							"$ref": "#/definitions/jsonrpcx.JSONRPCResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/api/v1/stream/session": {
			"get": {
				"produces": [
					"text/event-stream"
				],
				"tags": [
					"session"
				],
				"summary": "Live session feed",
				"description": "Server-sent JSON-RPC notifications: session.sync, session.started, session.progress, session.stopped, activity.recorded, activity.deleted",
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "token",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "event stream"
					},
					"401": {
						"description": "missing or invalid token"
					}
				}
			}
		},
		"/health": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"server"
				],
				"summary": "Health check",
				"responses": {
					"200": {
						"description": "healthy"
					},
					"503": {
						"description": "Redis unreachable"
					}
				}
			}
		}
	},
	"definitions": {
		"jsonrpcx.JSONRPCRequest": {
			"type": "object",
			"properties": {
				"jsonrpc": {
					"type": "string",
					"example": "2.0"
				},
				"method": {
					"type": "string"
				},
				"params": {
					"type": "object"
				},
				"id": {}
			}
		},
		"jsonrpcx.JSONRPCError": {
			"type": "object",
			"properties": {
				"code": {
					"type": "integer"
				},
				"message": {
					"type": "string"
				},
				"data": {}
			}
		},
		"jsonrpcx.JSONRPCResponse": {
			"type": "object",
			"properties": {
				"jsonrpc": {
					"type": "string",
					"example": "2.0"
				},
				"result": {},
				"error": {
					"$ref": "#/definitions/jsonrpcx.JSONRPCError"
				},
				"id": {}
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
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "stride API",
	Description:      "Activity recording service: JSON-RPC 2.0 over HTTP with a server-sent event feed.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
