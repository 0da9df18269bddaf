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

package gauth

import "github.com/gauth-dev/gauth/internal/mint"

// Token is an immutable bearer credential. Expires is an absolute unix
// epoch second populated from the mint response's expires_in relative
// to wall clock at mint time. Token.Stale reports whether it has
// expired; Token.OAuth2 adapts it to golang.org/x/oauth2.Token.
type Token = mint.Token
