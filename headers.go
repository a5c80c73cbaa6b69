package sentimentoor

// userAgent identifies this client to the API.
const userAgent = "go-sentimentoor/1.0"

// apiHeaders returns the headers sent with every authorized v2 request.
func apiHeaders(bearerToken string) map[string]string {
	return map[string]string{
		"authorization":   "Bearer " + bearerToken,
		"accept":          "application/json",
		"accept-encoding": "gzip, deflate, br",
		"user-agent":      userAgent,
	}
}

// apiHeaderOrder is the order headers are written on the wire.
var apiHeaderOrder = []string{
	"authorization",
	"user-agent",
	"accept",
	"accept-encoding",
}
