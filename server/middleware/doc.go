// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware provides HTTP request handling functionality for the message cache service.

Route definitions are centralized in router.DefineRoutes; the middleware chain
is assembled by router.RegisterMiddleware.
*/
package middleware
