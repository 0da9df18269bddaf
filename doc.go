/*
Copyright © 2026 The Gauth Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package gauth mints, caches, and transparently refreshes Google Cloud
// OAuth 2.0 access tokens on behalf of a host application.
//
// Start registers a named server bound to a credential source:
//
//	s, err := gauth.Start(
//		gauth.WithName("billing-exporter"),
//		gauth.WithSource(gauth.Source{Credentials: gauth.Credentials{
//			ServiceAccount: &gauth.ServiceAccountCredentials{
//				ClientEmail:   svcEmail,
//				PrivateKeyPEM: pemKey,
//			},
//		}}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Stop(context.Background())
//
//	tok, err := gauth.Fetch("billing-exporter", 5*time.Second)
//
// Passing gauth.Default as the source defers credential discovery to
// the environment, the way Application Default Credentials does:
//
//	gauth.Start(gauth.WithName("adc"), gauth.WithSource(gauth.Default))
//
// To route lifecycle logging somewhere other than /dev/null, wire in a
// logr.Logger, e.g. backed by zap:
//
//	zl, _ := zap.NewProduction()
//	gauth.SetLogger(zapr.NewLogger(zl))
//
// Metrics are exposed under metrics.MintAttemptsTotal and friends;
// register them against a prometheus.Registerer of your choosing with
// metrics.Register.
package gauth
