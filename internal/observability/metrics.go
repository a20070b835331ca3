package observability

// Use case RED metrics, one series per use case name (fulfillment.fulfill,
// inventory.deduct, payment.capture, ...).
const (
	MUsecaseRequests MetricKey = "usecase_requests_total"   // {use_case, outcome}
	MUsecaseDuration MetricKey = "usecase_duration_seconds" // {use_case}
)

// Inbound HTTP, labelled by gin route template so product and order ids never
// become label values.
const (
	MHTTPRequests        MetricKey = "http_requests_total"           // {method, route, status}
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds" // {method, route, status}
)

// Calls leaving the process boundary of a use case: the payment gateway, attempt
// publishing from the orchestrator and the Kafka sink.
const (
	MExternalRequests        MetricKey = "external_requests_total"           // {peer, endpoint, outcome}
	MExternalRequestDuration MetricKey = "external_request_duration_seconds" // {peer, endpoint}
)

// Saga shape. Outcomes count finished attempts by terminal stage; steps count
// every collaborator call the orchestrator made.
const (
	MFulfillmentOutcomes MetricKey = "fulfillment_outcomes_total" // {outcome, stage}
	MFulfillmentSteps    MetricKey = "fulfillment_steps_total"    // {step, status}
)
