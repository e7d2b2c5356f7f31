package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Programme Booking API",
        "description": "Registration and capacity management for programme editions with bookable session dates.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Editions", "description": "Programme catalog with sessions, date options and availability"},
        {"name": "Registrations", "description": "Public booking and the admin confirmation workflow"}
    ],
    "paths": {
        "/editions": {
            "get": {
                "tags": ["Editions"],
                "summary": "List programme editions",
                "parameters": [
                    {"name": "programmeKey", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Editions"],
                "summary": "Create an edition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertEditionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/editions/{idOrKey}": {
            "get": {
                "tags": ["Editions"],
                "summary": "Get an edition with sessions, date options and availability",
                "parameters": [
                    {"name": "idOrKey", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Editions"],
                "summary": "Replace an edition aggregate",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "idOrKey", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertEditionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Editions"],
                "summary": "Delete an edition (archives unless hard=true)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "idOrKey", "in": "path", "required": true, "type": "string"},
                    {"name": "hard", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/editions/{idOrKey}/availability": {
            "get": {
                "tags": ["Editions"],
                "summary": "Get the seat ledger for an edition's date options",
                "parameters": [
                    {"name": "idOrKey", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/editions/{idOrKey}/register": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Register for an edition",
                "parameters": [
                    {"name": "idOrKey", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "One or more chosen dates are full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/editions/{idOrKey}/registrations/export": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Export an edition's participant list",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "application/json"],
                "parameters": [
                    {"name": "idOrKey", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "share", "in": "query", "type": "boolean", "description": "Return a signed download link instead of the file"}
                ],
                "responses": {
                    "200": {"description": "Export file or signed link"}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Download an export via a signed link",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file"},
                    "404": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations": {
            "get": {
                "tags": ["Registrations"],
                "summary": "List registrations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "editionId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "confirmed", "cancelled"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Get a registration with its date choices",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/status": {
            "patch": {
                "tags": ["Registrations"],
                "summary": "Transition a registration's status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "UpsertEditionRequest": {
            "type": "object",
            "properties": {
                "programmeKey": {"type": "string"},
                "title": {"type": "string"},
                "titleEn": {"type": "string"},
                "maxCapacity": {"type": "integer"},
                "isActive": {"type": "boolean"},
                "sessionsMandatory": {"type": "boolean"},
                "sessions": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/SessionInput"}
                }
            },
            "required": ["programmeKey", "title", "sessions"]
        },
        "SessionInput": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "sessionNumber": {"type": "integer"},
                "title": {"type": "string"},
                "titleEn": {"type": "string"},
                "dateOptions": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/DateOptionInput"}
                }
            }
        },
        "DateOptionInput": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "startsAt": {"type": "string", "format": "date-time"},
                "location": {"type": "string"},
                "maxCapacity": {"type": "integer"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "whatsapp": {"type": "string"},
                "message": {"type": "string"},
                "consent": {"type": "boolean"},
                "dateChoices": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            },
            "required": ["firstName", "lastName", "email", "phone", "consent", "dateChoices"]
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["pending", "confirmed", "cancelled"]}
            },
            "required": ["status"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
