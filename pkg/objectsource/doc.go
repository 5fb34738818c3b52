// Package objectsource exposes the operations of registered business objects
// as a data source.
//
// An ObjectView names a type and its select, count, insert, update and delete
// methods in a method.Registry. Selects run through a datasource.Pipeline, so
// capability checks, caching and result shaping are shared with every other
// provider; ObjectView only merges parameters, injects sort and paging values
// and invokes the resolved overload.
//
// Modifications run either in named mode, where every value becomes a named
// argument, or in aggregate mode when DataObjectTypeName names a registered
// data object type that is built from the values.
package objectsource
