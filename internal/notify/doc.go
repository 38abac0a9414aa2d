// Package notify delivers formatted text notifications to an outbound
// webhook.
//
// Webhook.Send makes exactly one POST per message with a JSON body of the
// form {"text": "..."}. Failures are classified as Transport (the request
// never produced a response) or RemoteRejected (a non-2xx status) and are
// returned as *DeliveryError. Nothing is retried; callers treat the next
// scheduled tick as the retry.
package notify
