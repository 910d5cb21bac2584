package server

import (
	"net/http"

	"github.com/Masterminds/semver/v3"

	"github.com/teachcharlie/tcagent/internal/common/httpx"
)

// Version is the tcagent release.
const Version = "0.1.0"

// APIVersion is the command API version. Clients may send it in APIVersionHeader.
const APIVersion = "1.0.0"

// APIVersionHeader carries the API version a client was built against.
const APIVersionHeader = "X-Tcagent-Api-Version"

// apiConstraint accepts clients on the same major version.
var apiConstraint *semver.Constraints

func init() {
	var err error
	apiConstraint, err = semver.NewConstraint("^" + APIVersion)
	if err != nil {
		panic(err)
	}
}

// IsAPIVersionCompatible reports whether a client API version can talk to this server.
func IsAPIVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return apiConstraint.Check(v)
}

// versionCheck rejects requests that declare an incompatible API version. Requests
// without the header are accepted.
func versionCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := r.Header.Get(APIVersionHeader); v != "" && !IsAPIVersionCompatible(v) {
			(&httpx.Error{
				Description: "unsupported api version: " + v,
				StatusCode:  http.StatusPreconditionFailed,
			}).Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
