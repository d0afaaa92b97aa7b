package server

import (
	"log"
	"net/http"
)

func Handler(store SessionStore, ctrl SessionControl, docs DocumentIndex) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, ctrl)
	registerAPIRoutes(mux, store, ctrl, docs)

	return mux
}

func Serve(addr string, store SessionStore, ctrl SessionControl, docs DocumentIndex) error {
	log.Printf("listening on http://%s", addr)
	return http.ListenAndServe(addr, Handler(store, ctrl, docs))
}
