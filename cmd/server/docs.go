package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           MetalOps Hedging API
// @version         0.1.0
// @description     Hedge request lifecycle, position operations, and derived views for physical metal trading.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
