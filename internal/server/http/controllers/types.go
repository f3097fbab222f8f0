package controllers

import "github.com/corbtastik/incident-visualizer/internal/category"

// errorResp is the body of every non-2xx response.
type errorResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type categoriesResp struct {
	Categories []category.Category `json:"categories"`
}
