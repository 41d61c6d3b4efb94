// Package testutil provides fixtures shared by the package tests: an OpenAPI
// document for a small catalog API and an httptest server that implements it.
package testutil

// CatalogSpec is an OpenAPI 3 description of the fake catalog. Path order is
// significant: lookups return the first match in document order.
const CatalogSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Toolshop API", "version": "5.0.0"},
  "paths": {
    "/brands": {
      "get": {"responses": {"200": {"description": "brands"}}}
    },
    "/brands/{brandId}": {
      "get": {
        "parameters": [{"name": "brandId", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "brand"}}
      }
    },
    "/categories": {
      "get": {"responses": {"200": {"description": "categories"}}}
    },
    "/categories/tree": {
      "get": {"responses": {"200": {"description": "tree"}}}
    },
    "/products": {
      "get": {
        "parameters": [
          {"name": "by_category", "in": "query", "schema": {"type": "string"}},
          {"name": "by_brand", "in": "query", "schema": {"type": "string"}},
          {"name": "page", "in": "query", "schema": {"type": "integer", "default": 1}},
          {"name": "sort", "in": "query", "example": "name,asc",
           "schema": {"type": "string", "enum": ["name,asc", "name,desc", "price,asc"], "example": "price,asc"}}
        ],
        "responses": {"200": {"description": "products"}}
      },
      "post": {"responses": {"201": {"description": "created"}}}
    },
    "/products/{productId}": {
      "get": {
        "parameters": [{"name": "productId", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "product"}, "404": {"description": "missing"}}
      }
    },
    "/users/login": {
      "post": {"responses": {"200": {"description": "token"}}}
    },
    "/users/me": {
      "get": {"responses": {"200": {"description": "me"}, "401": {"description": "unauthorized"}}}
    },
    "/invoices": {
      "get": {"responses": {"200": {"description": "invoices"}}}
    },
    "/favorites": {
      "get": {"responses": {"200": {"description": "favorites"}}}
    },
    "/carts/{cartId}": {
      "get": {"responses": {"200": {"description": "cart"}}}
    }
  }
}`

// CatalogSwagger2 is a Swagger 2.0 description of a subset of the catalog
const CatalogSwagger2 = `{
  "swagger": "2.0",
  "info": {"title": "Toolshop API", "version": "1.0"},
  "paths": {
    "/products": {
      "get": {
        "parameters": [
          {"name": "sort", "in": "query", "type": "string", "enum": ["price,asc", "price,desc"]}
        ],
        "responses": {"200": {"description": "products"}}
      }
    },
    "/products/{id}": {
      "get": {
        "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
        "responses": {"200": {"description": "product"}}
      }
    }
  }
}`

// CatalogYAML is a YAML description whose path order differs from sorted order
const CatalogYAML = `openapi: 3.0.0
info:
  title: Toolshop API
  version: 5.0.0
paths:
  /products:
    get:
      parameters:
        - name: page
          in: query
          schema:
            type: integer
      responses:
        200:
          description: products
  /brands:
    get:
      responses:
        200:
          description: brands
`

// Product fixtures served by the fake catalog
var Products = []map[string]any{
	{
		"id":          "01HPRODUCT0001",
		"name":        "Combination Pliers",
		"slug":        "combination-pliers",
		"category_id": "cat-hand-tools",
		"brand_id":    "brand-forgeflex",
	},
	{
		"id":          "01HPRODUCT0002",
		"name":        "Claw Hammer",
		"slug":        "claw-hammer",
		"category_id": "cat-hand-tools",
		"brand_id":    "brand-mightycraft",
	},
}
