// Package docs registers the swagger document served under /swagger.
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
        "/points/create-or-get": {"post": {"tags": ["Points"], "summary": "Create a point of interest or return the existing one", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/points/saved/details": {"post": {"tags": ["Points"], "summary": "Details of points of interest by id", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/user/history/saved-pois": {
            "get": {"tags": ["User History"], "summary": "Saved points of interest for a city", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["User History"], "summary": "Save a point of interest to the user's history", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/user/history/saved-pois/details": {"get": {"tags": ["User History"], "summary": "Details of saved points of interest for a city", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/user/history/saved-pois/unsave": {"put": {"tags": ["User History"], "summary": "Remove points of interest from the user's history", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/explore/places": {"get": {"tags": ["Explore"], "summary": "Places around a location", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/trips": {
            "get": {"tags": ["Trips"], "summary": "Trips saved by the user", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Trips"], "summary": "Create a trip", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/trips/generate": {"post": {"tags": ["Trips"], "summary": "Generate an itinerary for the selected places", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/trips/{tripID}": {
            "get": {"tags": ["Trips"], "summary": "Trip with its itinerary", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Trips"], "summary": "Apply a changeset to a trip", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Trips"], "summary": "Remove a trip from the user's trips", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}}}
        },
        "/trips/{tripID}/exists": {"get": {"tags": ["Trips"], "summary": "Whether the user saved the trip", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/planner/slot": {"post": {"tags": ["Planner"], "summary": "Earliest free slot on a day", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/planner/diff": {"post": {"tags": ["Planner"], "summary": "Changeset between two itinerary snapshots", "responses": {"200": {"description": "OK"}}}},
        "/planner/categories": {"post": {"tags": ["Planner"], "summary": "Map trip preferences to place categories", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Trip Planner API",
	Description:      "Points of interest, trips and itinerary planning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
