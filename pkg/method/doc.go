// Package method binds named parameter bags to registered Go functions.
//
// Go functions carry no parameter names at run time, so every callable
// operation is described up front in a Registry: its name, the data operation
// it is tagged for (if any), whether it is the default for that operation,
// and its ordered parameter names and types. Resolution picks the overload
// whose parameter names exactly match the supplied bag, preferring tagged
// default operations, then tagged operations, then plain name matches. A tie
// at the winning level is an ambiguity error. Registry.Check reports such
// ties before any request is served.
//
// Operations are plain functions:
//
//	reg.Register("Users", method.Method{
//		Name:    "GetUsers",
//		Kind:    method.KindSelect,
//		Default: true,
//		Params:  []method.Param{method.In[int]("startRowIndex"), method.In[int]("maximumRows")},
//		Func:    (*UserStore).GetUsers,
//	})
//
// A function whose first argument is the registered type's receiver is an
// instance method; the Invoker obtains an instance from the ObjectCreating
// hook or the type's factory. A context.Context first parameter (after the
// receiver) is filled from the invocation context and is not part of Params.
package method
