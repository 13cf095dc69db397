// Package subscribeto implements a multi tenant subscription commerce
// backend: businesses publish products, products are sold through recurring
// programs, and users subscribe to programs.
//
// The security core is self contained:
//   - Credential hashing derives a pepper by chaining a salted hash over the
//     password; verification recomputes and compares in constant time.
//   - Cipher is an injected AEAD context keyed from the operator secret. It
//     backs every opaque token the server hands out.
//   - Challenge tokens are stateless: a short code plus an opaque payload,
//     serialized and encrypted; the server stores nothing and any decode
//     failure collapses into a single invalid token error.
//   - Sessions are opaque database records. Privilege tiers (user, business,
//     admin) are independent predicates evaluated per request; a dead session
//     fails every explicit tier requirement.
package subscribeto
