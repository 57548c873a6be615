package oidc

import "fmt"

func successPage() string {
	return `<html>
	<head><title>Authentication Successful</title></head>
	<body>
		<h1>Authentication Successful!</h1>
		<p>You have been successfully authenticated.</p>
		<p>You can close this window and return to your application.</p>
	</body>
</html>`
}

func errorPage(message string) string {
	return fmt.Sprintf(`<html>
	<head><title>Authentication Failed</title></head>
	<body>
		<h1>Authentication Failed</h1>
		<p>%s</p>
		<p>You can close this window.</p>
	</body>
</html>`, message)
}
