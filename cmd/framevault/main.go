// Package main is the entry point for FrameVault.
//
//	@title						FrameVault Usage Meter API
//	@version					1.0
//	@description				Records billable photo downloads and reports them to metered billing.
//
//	@license.name				MIT
//
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token issued by the identity provider, as "Bearer {token}"
package main

func main() {
	Execute()
}
