package gateway

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// NewForwarder proxies requests to an upstream service, replacing the
// caller's token with a freshly minted gateway service token.
func NewForwarder(upstream string, tokens *TokenIssuer, logger *log.Logger) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			token, err := tokens.IssueService()
			if err != nil {
				// The upstream will reject the request; nothing sane to do here.
				logger.Printf("mint service token: %v", err)
				return
			}
			pr.Out.Header.Set("Authorization", "Bearer "+token)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Printf("proxy to %s failed: %v", upstream, err)
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}

	return proxy, nil
}
