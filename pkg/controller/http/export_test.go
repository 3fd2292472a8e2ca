package http

var ParseSparkWebhook = parseSparkWebhook

var RelayStatus = relayStatus
