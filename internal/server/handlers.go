package server

import (
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"displaybox/internal/auth"
	"displaybox/internal/store"
)

const invalidPasswordMessage = "Invalid password"

func handleSplash(st siteStore, v *views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.render(w, r, "index.html", viewData{
			Sites: st.LoadSites(),
			Theme: st.LoadConfig(),
			Auth:  auth.FromContext(r.Context()).Authenticated,
		})
	}
}

func handleSite(st siteStore, v *views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sites := st.LoadSites()
		site, ok := store.FindSite(sites, chi.URLParam(r, "id"))
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		host := requestHostname(r)
		v.render(w, r, "site.html", viewData{
			Sites:    sites,
			Site:     site,
			Host:     host,
			FrameURL: frameURL(host, site.Port),
			Theme:    st.LoadConfig(),
			Auth:     auth.FromContext(r.Context()).Authenticated,
		})
	}
}

func handleLoginPage(st siteStore, v *views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.render(w, r, "login.html", viewData{
			Sites: st.LoadSites(),
			Theme: st.LoadConfig(),
			Auth:  auth.FromContext(r.Context()).Authenticated,
		})
	}
}

func handleLogin(st siteStore, gate *auth.Gate, v *views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gate.Authenticate(w, r, r.PostFormValue("password")) {
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}
		v.render(w, r, "login.html", viewData{
			Sites: st.LoadSites(),
			Theme: st.LoadConfig(),
			Error: invalidPasswordMessage,
			Auth:  false,
		})
	}
}

func handleLogout(gate *auth.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate.Terminate(w, r)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func handleAdmin(st siteStore, v *views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.render(w, r, "admin.html", viewData{
			Sites: st.LoadSites(),
			Theme: st.LoadConfig(),
			Auth:  true,
		})
	}
}

func handleAddSite(st siteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st.AddSite(r.PostFormValue("name"), r.PostFormValue("description"), r.PostFormValue("port"))
		http.Redirect(w, r, "/admin", http.StatusFound)
	}
}

func handleDeleteSite(st siteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st.DeleteSite(chi.URLParam(r, "id"))
		http.Redirect(w, r, "/admin", http.StatusFound)
	}
}

func handleUpdateTheme(st siteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st.SetThemeColor(r.PostFormValue("themeColor"))
		http.Redirect(w, r, "/admin", http.StatusFound)
	}
}

// requestHostname is the Host header without its port.
func requestHostname(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.Host); err == nil {
		return host
	}
	return r.Host
}

// frameURL points the embedded frame at the site's port on the host the
// dashboard itself was reached through.
func frameURL(host, port string) string {
	u := url.URL{Scheme: "http", Host: host}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	}
	return u.String()
}
