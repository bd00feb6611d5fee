package main

//go:generate swag init -g cmd/hub/main.go -o docs

// @title           Gene Pool & Bounty Hub API
// @version         0.1.0
// @description     Trading-signal gene pool, evolution cycles, bounty claims, and the strategy marketplace.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
