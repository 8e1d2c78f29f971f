// Package docs provides Swagger documentation for the Go Brokerage API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Go Brokerage API",
        "description": "Insurance brokerage back office.\n\nThe workflow:\n1. **Products** - Insurer products with custom underwriting fields\n2. **Clients** - Each client belongs to one broker\n3. **Premium** - Price a product without storing anything\n4. **Offers** - Priced proposals valid for 30 days\n5. **Policies** - Issued from accepted offers, paid and validated\n6. **Commissions** - Earned by the broker on every issued policy",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/MrKriegler/go-brokerage"
        },
        "license": {
            "name": "MIT"
        },
        "version": "1.0.0"
    },
    "host": "localhost:8080",
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "securityDefinitions": {
        "bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"bearer": []}],
    "paths": {
        "/products": {
            "get": {
                "tags": ["Products"],
                "summary": "List products",
                "operationId": "listProducts",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string", "enum": ["LIFE", "HEALTH", "AUTO", "HOME", "TRAVEL", "BUSINESS"]},
                    {"name": "active", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Products ordered by name", "schema": {"$ref": "#/definitions/ProductList"}}
                }
            },
            "post": {
                "tags": ["Products"],
                "summary": "Create a product",
                "description": "Administrators only",
                "operationId": "createProduct",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Product"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Product"}},
                    "400": {"description": "Invalid product", "schema": {"$ref": "#/definitions/ProblemDetails"}},
                    "403": {"description": "Permission denied", "schema": {"$ref": "#/definitions/ProblemDetails"}},
                    "409": {"description": "Code already exists", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/products/{product_id}": {
            "get": {
                "tags": ["Products"],
                "summary": "Get a product",
                "operationId": "getProduct",
                "parameters": [{"name": "product_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Successful response", "schema": {"$ref": "#/definitions/Product"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            },
            "put": {
                "tags": ["Products"],
                "summary": "Replace a product",
                "operationId": "updateProduct",
                "parameters": [
                    {"name": "product_id", "in": "path", "required": true, "type": "integer"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Product"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/Product"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/ProblemDetails"}},
                    "409": {"description": "Code already exists", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/premium/calculate": {
            "post": {
                "tags": ["Premium"],
                "summary": "Calculate a premium",
                "description": "Runs the rating engine. Nothing is stored.",
                "operationId": "calculatePremium",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QuoteRequest"}}],
                "responses": {
                    "200": {"description": "Premium and breakdown", "schema": {"$ref": "#/definitions/PremiumQuote"}},
                    "400": {"description": "Invalid inputs", "schema": {"$ref": "#/definitions/ProblemDetails"}},
                    "404": {"description": "Product or client not found", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/clients": {
            "get": {
                "tags": ["Clients"],
                "summary": "List clients in scope",
                "operationId": "listClients",
                "parameters": [
                    {"name": "q", "in": "query", "type": "string", "description": "Matches name, email or CNP"},
                    {"name": "broker_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Clients ordered by last name", "schema": {"$ref": "#/definitions/ClientList"}}
                }
            },
            "post": {
                "tags": ["Clients"],
                "summary": "Register a client",
                "operationId": "createClient",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClientInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Client"}},
                    "400": {"description": "Invalid client", "schema": {"$ref": "#/definitions/ProblemDetails"}},
                    "403": {"description": "Permission denied", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/clients/{client_id}": {
            "get": {
                "tags": ["Clients"],
                "summary": "Get a client",
                "operationId": "getClient",
                "parameters": [{"name": "client_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Successful response", "schema": {"$ref": "#/definitions/Client"}},
                    "404": {"description": "Not found or out of scope", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            },
            "patch": {
                "tags": ["Clients"],
                "summary": "Update contact details",
                "operationId": "updateClient",
                "parameters": [
                    {"name": "client_id", "in": "path", "required": true, "type": "integer"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClientPatch"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/Client"}},
                    "404": {"description": "Not found or out of scope", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            },
            "delete": {
                "tags": ["Clients"],
                "summary": "Delete a client",
                "operationId": "deleteClient",
                "parameters": [{"name": "client_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found or out of scope", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/clients/{client_id}:consent": {
            "post": {
                "tags": ["Clients"],
                "summary": "Record GDPR consent",
                "operationId": "grantConsent",
                "parameters": [{"name": "client_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Consent recorded", "schema": {"$ref": "#/definitions/Client"}},
                    "409": {"description": "Consent already recorded", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/brokers": {
            "get": {
                "tags": ["Brokers"],
                "summary": "List brokers",
                "operationId": "listBrokers",
                "responses": {
                    "200": {"description": "Brokers ordered by last name", "schema": {"$ref": "#/definitions/BrokerList"}}
                }
            },
            "post": {
                "tags": ["Brokers"],
                "summary": "Create a broker",
                "description": "Administrators and broker managers only",
                "operationId": "createBroker",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Broker"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Broker"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/brokers/{broker_id}": {
            "get": {
                "tags": ["Brokers"],
                "summary": "Get a broker",
                "operationId": "getBroker",
                "parameters": [{"name": "broker_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Successful response", "schema": {"$ref": "#/definitions/Broker"}},
                    "404": {"description": "Broker not found", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            },
            "put": {
                "tags": ["Brokers"],
                "summary": "Replace a broker",
                "operationId": "updateBroker",
                "parameters": [
                    {"name": "broker_id", "in": "path", "required": true, "type": "integer"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Broker"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/Broker"}},
                    "404": {"description": "Broker not found", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/offers": {
            "get": {
                "tags": ["Offers"],
                "summary": "List offers in scope",
                "description": "PENDING offers past their expiry are reported as EXPIRED",
                "operationId": "listOffers",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "ACCEPTED", "REJECTED", "EXPIRED"]},
                    {"name": "broker_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Newest first", "schema": {"$ref": "#/definitions/OfferList"}}
                }
            },
            "post": {
                "tags": ["Offers"],
                "summary": "Create an offer",
                "description": "Stores a PENDING offer at the quoted premium. It expires in 30 days.",
                "operationId": "createOffer",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OfferInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Offer"}},
                    "400": {"description": "Invalid offer", "schema": {"$ref": "#/definitions/ProblemDetails"}},
                    "404": {"description": "Client or product not found", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/offers/{offer_id}": {
            "get": {
                "tags": ["Offers"],
                "summary": "Get an offer",
                "operationId": "getOffer",
                "parameters": [{"name": "offer_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Successful response", "schema": {"$ref": "#/definitions/Offer"}},
                    "404": {"description": "Not found or out of scope", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/offers/{offer_id}:reject": {
            "post": {
                "tags": ["Offers"],
                "summary": "Reject a pending offer",
                "operationId": "rejectOffer",
                "parameters": [{"name": "offer_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Rejected", "schema": {"$ref": "#/definitions/Offer"}},
                    "409": {"description": "Offer is not pending", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/offers/{offer_id}:convert": {
            "post": {
                "tags": ["Offers"],
                "summary": "Convert an offer into a policy",
                "description": "Accepts the offer, issues the policy and records the broker commission in one step. Online card payments activate the policy immediately.",
                "operationId": "convertOffer",
                "parameters": [
                    {"name": "offer_id", "in": "path", "required": true, "type": "integer"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckoutInput"}}
                ],
                "responses": {
                    "201": {"description": "Issued", "schema": {"$ref": "#/definitions/Policy"}},
                    "409": {"description": "Offer is not pending or already converted", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies": {
            "get": {
                "tags": ["Policies"],
                "summary": "List policies in scope",
                "operationId": "listPolicies",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "AWAITING_PAYMENT", "AWAITING_VALIDATION", "ACTIVE", "SUSPENDED", "CANCELLED", "EXPIRED"]},
                    {"name": "payment_status", "in": "query", "type": "string", "enum": ["PENDING", "PAID", "VALIDATED", "REJECTED"]},
                    {"name": "broker_id", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer", "default": 20, "maximum": 100},
                    {"name": "offset", "in": "query", "type": "integer", "default": 0}
                ],
                "responses": {
                    "200": {"description": "Newest first", "schema": {"$ref": "#/definitions/PolicyPage"}}
                }
            }
        },
        "/policies/{policy_id}": {
            "get": {
                "tags": ["Policies"],
                "summary": "Get a policy",
                "operationId": "getPolicy",
                "parameters": [{"name": "policy_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Successful response", "schema": {"$ref": "#/definitions/Policy"}},
                    "404": {"description": "Not found or out of scope", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies/by-number/{policy_number}": {
            "get": {
                "tags": ["Policies"],
                "summary": "Get a policy by number",
                "operationId": "getPolicyByNumber",
                "parameters": [{"name": "policy_number", "in": "path", "required": true, "type": "string", "description": "e.g. POL-2025-00001"}],
                "responses": {
                    "200": {"description": "Successful response", "schema": {"$ref": "#/definitions/Policy"}},
                    "404": {"description": "Not found or out of scope", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies/{policy_id}/proof": {
            "post": {
                "tags": ["Policies"],
                "summary": "Upload proof of payment",
                "operationId": "uploadProof",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "policy_id", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/Policy"}},
                    "503": {"description": "Document storage disabled", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            },
            "get": {
                "tags": ["Policies"],
                "summary": "Download proof of payment",
                "operationId": "downloadProof",
                "produces": ["application/pdf", "image/jpeg", "image/png"],
                "parameters": [{"name": "policy_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "File contents"},
                    "404": {"description": "No proof uploaded", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies/{policy_id}:validate-payment": {
            "post": {
                "tags": ["Policies"],
                "summary": "Validate a payment",
                "description": "Administrators and broker managers only. Activates the policy.",
                "operationId": "validatePayment",
                "parameters": [{"name": "policy_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Validated", "schema": {"$ref": "#/definitions/Policy"}},
                    "409": {"description": "Payment already decided", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies/{policy_id}:reject-payment": {
            "post": {
                "tags": ["Policies"],
                "summary": "Reject a payment",
                "operationId": "rejectPayment",
                "parameters": [{"name": "policy_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Rejected", "schema": {"$ref": "#/definitions/Policy"}},
                    "409": {"description": "Payment already decided", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies/{policy_id}:cancel": {
            "post": {
                "tags": ["Policies"],
                "summary": "Cancel a policy",
                "operationId": "cancelPolicy",
                "parameters": [
                    {"name": "policy_id", "in": "path", "required": true, "type": "integer"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "required": ["reason"], "properties": {"reason": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/Policy"}},
                    "409": {"description": "Already cancelled or expired", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/policies/{policy_id}:suspend": {
            "post": {
                "tags": ["Policies"],
                "summary": "Suspend an active policy",
                "operationId": "suspendPolicy",
                "parameters": [{"name": "policy_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Suspended", "schema": {"$ref": "#/definitions/Policy"}},
                    "409": {"description": "Policy is not active", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/commissions": {
            "get": {
                "tags": ["Commissions"],
                "summary": "List commissions in scope",
                "operationId": "listCommissions",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "PAID", "CANCELLED"]},
                    {"name": "broker_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Newest first", "schema": {"$ref": "#/definitions/CommissionList"}}
                }
            }
        },
        "/commissions/{commission_id}:pay": {
            "post": {
                "tags": ["Commissions"],
                "summary": "Mark a commission paid",
                "operationId": "payCommission",
                "parameters": [{"name": "commission_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Paid", "schema": {"$ref": "#/definitions/Commission"}},
                    "409": {"description": "Commission is not pending", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/commissions/{commission_id}:cancel": {
            "post": {
                "tags": ["Commissions"],
                "summary": "Cancel a commission",
                "operationId": "cancelCommission",
                "parameters": [{"name": "commission_id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/Commission"}},
                    "409": {"description": "Commission is not pending", "schema": {"$ref": "#/definitions/ProblemDetails"}}
                }
            }
        },
        "/activity": {
            "get": {
                "tags": ["Activity"],
                "summary": "Timeline of one entity",
                "operationId": "listActivity",
                "parameters": [
                    {"name": "entity_type", "in": "query", "required": true, "type": "string", "enum": ["CLIENT", "OFFER", "POLICY"]},
                    {"name": "entity_id", "in": "query", "required": true, "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Newest first", "schema": {"$ref": "#/definitions/ActivityList"}}
                }
            }
        }
    },
    "definitions": {
        "Money": {"type": "string", "example": "310.55"},
        "CustomFieldDefinition": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "smoker"},
                "label": {"type": "string"},
                "type": {"type": "string", "enum": ["text", "number", "select", "date", "checkbox"]},
                "required": {"type": "boolean"},
                "options": {"type": "array", "items": {"type": "string"}},
                "placeholder": {"type": "string"},
                "factor_multiplier": {"$ref": "#/definitions/Money"},
                "factor_condition": {"type": "string", "example": "value === true"}
            }
        },
        "Product": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "code": {"type": "string", "example": "LIFE-TERM-20"},
                "description": {"type": "string"},
                "category": {"type": "string", "enum": ["LIFE", "HEALTH", "AUTO", "HOME", "TRAVEL", "BUSINESS"]},
                "insurer_name": {"type": "string"},
                "base_premium": {"$ref": "#/definitions/Money"},
                "base_rate": {"type": "string", "example": "0.0025"},
                "active": {"type": "boolean"},
                "custom_fields": {"type": "array", "items": {"$ref": "#/definitions/CustomFieldDefinition"}}
            }
        },
        "ProductList": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/Product"}}, "total": {"type": "integer"}}
        },
        "QuoteRequest": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "client_id": {"type": "integer"},
                "client_cnp": {"type": "string"},
                "sum_insured": {"$ref": "#/definitions/Money"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "custom_field_values": {"type": "object"}
            }
        },
        "PremiumFactor": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "age"},
                "multiplier": {"type": "string", "example": "1.3"},
                "reason": {"type": "string"}
            }
        },
        "PremiumBreakdown": {
            "type": "object",
            "properties": {
                "base_premium": {"$ref": "#/definitions/Money"},
                "factors": {"type": "array", "items": {"$ref": "#/definitions/PremiumFactor"}},
                "final_premium": {"$ref": "#/definitions/Money"}
            }
        },
        "PremiumQuote": {
            "type": "object",
            "properties": {"premium": {"$ref": "#/definitions/Money"}, "breakdown": {"$ref": "#/definitions/PremiumBreakdown"}}
        },
        "ClientInput": {
            "type": "object",
            "required": ["first_name", "last_name", "email", "phone", "cnp"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string", "format": "email"},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "date_of_birth": {"type": "string", "format": "date"},
                "nationality": {"type": "string"},
                "cnp": {"type": "string", "example": "1850101123456"},
                "id_type": {"type": "string", "enum": ["ID_CARD", "PASSPORT", "DRIVERS_LICENSE"]},
                "id_number": {"type": "string"},
                "id_expiry": {"type": "string", "format": "date"},
                "gdpr_consent": {"type": "boolean"},
                "broker_id": {"type": "integer"}
            }
        },
        "ClientPatch": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "phone": {"type": "string"}, "address": {"type": "string"}}
        },
        "Client": {
            "allOf": [
                {"$ref": "#/definitions/ClientInput"},
                {
                    "type": "object",
                    "properties": {
                        "id": {"type": "integer"},
                        "gdpr_consent_date": {"type": "string", "format": "date-time"},
                        "created_at": {"type": "string", "format": "date-time"}
                    }
                }
            ]
        },
        "ClientList": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/Client"}}, "total": {"type": "integer"}}
        },
        "Broker": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string", "format": "email"},
                "phone": {"type": "string"},
                "license_number": {"type": "string"},
                "commission_rate": {"type": "string", "example": "0.10"},
                "hire_date": {"type": "string", "format": "date"},
                "active": {"type": "boolean"},
                "role": {"type": "string", "enum": ["ADMINISTRATOR", "BROKER_MANAGER", "BROKER"]}
            }
        },
        "BrokerList": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/Broker"}}, "total": {"type": "integer"}}
        },
        "OfferInput": {
            "type": "object",
            "required": ["client_id", "product_id", "start_date", "end_date", "sum_insured", "premium", "gdpr_consent"],
            "properties": {
                "client_id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "broker_id": {"type": "integer"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "sum_insured": {"$ref": "#/definitions/Money"},
                "premium": {"$ref": "#/definitions/Money"},
                "breakdown": {"$ref": "#/definitions/PremiumBreakdown"},
                "custom_field_values": {"type": "object"},
                "gdpr_consent": {"type": "boolean"}
            }
        },
        "Offer": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "offer_number": {"type": "string", "example": "OFF-2025-00001"},
                "client_id": {"type": "integer"},
                "client_name": {"type": "string"},
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "insurer_name": {"type": "string"},
                "broker_id": {"type": "integer"},
                "broker_name": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "premium": {"$ref": "#/definitions/Money"},
                "sum_insured": {"$ref": "#/definitions/Money"},
                "breakdown": {"$ref": "#/definitions/PremiumBreakdown"},
                "status": {"type": "string", "enum": ["PENDING", "ACCEPTED", "REJECTED", "EXPIRED"]},
                "custom_field_values": {"type": "object"},
                "expires_at": {"type": "string", "format": "date-time"},
                "accepted_at": {"type": "string", "format": "date-time"},
                "rejected_at": {"type": "string", "format": "date-time"}
            }
        },
        "OfferList": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/Offer"}}, "total": {"type": "integer"}}
        },
        "CheckoutInput": {
            "type": "object",
            "required": ["payment_method"],
            "properties": {
                "payment_method": {"type": "string", "enum": ["CASH", "POS", "CARD_ONLINE", "BANK_TRANSFER", "BROKER_PAYMENT"]},
                "proof_of_payment": {"type": "string"}
            }
        },
        "Policy": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "policy_number": {"type": "string", "example": "POL-2025-00001"},
                "offer_id": {"type": "integer"},
                "client_id": {"type": "integer"},
                "client_name": {"type": "string"},
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "insurer_name": {"type": "string"},
                "broker_id": {"type": "integer"},
                "broker_name": {"type": "string"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "premium": {"$ref": "#/definitions/Money"},
                "sum_insured": {"$ref": "#/definitions/Money"},
                "status": {"type": "string", "enum": ["PENDING", "AWAITING_PAYMENT", "AWAITING_VALIDATION", "ACTIVE", "SUSPENDED", "CANCELLED", "EXPIRED"]},
                "payment_method": {"type": "string"},
                "payment_status": {"type": "string", "enum": ["PENDING", "PAID", "VALIDATED", "REJECTED"]},
                "proof_of_payment": {"type": "string"},
                "validated_by": {"type": "integer"},
                "validated_at": {"type": "string", "format": "date-time"},
                "cancellation_reason": {"type": "string"},
                "cancelled_at": {"type": "string", "format": "date-time"},
                "custom_field_values": {"type": "object"}
            }
        },
        "PolicyPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/Policy"}},
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "Commission": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "policy_id": {"type": "integer"},
                "policy_number": {"type": "string"},
                "broker_id": {"type": "integer"},
                "broker_name": {"type": "string"},
                "rate": {"type": "string", "example": "0.10"},
                "amount": {"$ref": "#/definitions/Money"},
                "status": {"type": "string", "enum": ["PENDING", "PAID", "CANCELLED"]},
                "payment_date": {"type": "string", "format": "date-time"}
            }
        },
        "CommissionList": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/Commission"}}, "total": {"type": "integer"}}
        },
        "ActivityLogEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "integer"},
                "activity_type": {"type": "string"},
                "description": {"type": "string"},
                "performed_by": {"type": "integer"},
                "metadata": {"type": "object"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "ActivityList": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/ActivityLogEntry"}}, "total": {"type": "integer"}}
        },
        "ProblemDetails": {
            "type": "object",
            "description": "RFC 7807 Problem Details",
            "properties": {
                "type": {"type": "string", "example": "about:blank"},
                "title": {"type": "string", "example": "Not Found"},
                "status": {"type": "integer", "example": 404},
                "detail": {"type": "string", "example": "Resource not found"},
                "field": {"type": "string"}
            }
        }
    },
    "tags": [
        {"name": "Products", "description": "Insurer product catalog"},
        {"name": "Premium", "description": "Rating engine"},
        {"name": "Clients", "description": "Broker client book"},
        {"name": "Brokers", "description": "Broker accounts"},
        {"name": "Offers", "description": "Priced proposals"},
        {"name": "Policies", "description": "Issued policies and payments"},
        {"name": "Commissions", "description": "Broker earnings"},
        {"name": "Activity", "description": "Audit timeline"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Go Brokerage API",
	Description:      "Insurance brokerage back office API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
