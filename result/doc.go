// Package result implements a Result/Either value type representing success
// or failure without exceptions, combinator functions (Map, Bind, Match)
// obeying the functor and monad laws, context-aware asynchronous variants,
// and a paginated form that lifts the combinators over a page of items.
package result
