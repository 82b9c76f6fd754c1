// Package libretranslate serves translation pairs from a LibreTranslate HTTP
// server.
//
// Supported pairs are discovered once per client from GET /languages; a pair
// the server does not list is reported as a missing package. Segment requests
// go to POST /translate and are paced by a token-bucket limiter so a large
// transcript does not trip the server's own rate limiting.
package libretranslate
