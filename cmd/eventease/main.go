// @title EventEase API
// @version 1.0
// @description Campus event management: event approval workflow, capacity-bounded registration and post-event feedback.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import "eventease/cmd/eventease/cmd"

func main() {
	cmd.Execute()
}
