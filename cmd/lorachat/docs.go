package main

// General API documentation for swaggo. Regenerate with
// `swag init -g cmd/lorachat/docs.go -o docs --parseDependency`.
//
// @title           lorachat API
// @version         1.0
// @description     HTTP API for a LoRA-adapted chat model.
//
// @contact.name   lorachat maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
