// Package controls holds the stateful UI components: Calendar, DataGrid,
// DataList, Repeater, Table and TreeNode.
//
// A control keeps its persisted properties in a viewstate.Bag and each style
// in its own Style record. The bag is the composite's own store and the styles
// occupy fixed positional slots, so a control is itself a viewstate.Stateful:
//
//	grid := controls.NewDataGrid()
//	grid.TrackState()
//	grid.SetAllowPaging(true)
//	snap, _ := grid.SaveState() // only AllowPaging
//
// Data-bound controls select through a *datasource.Pipeline. DataGrid asks
// the provider for one page when it declares paging and a row count, and
// pages in memory through PagedDataSource otherwise.
//
// Postback handling is explicit: HandlePostBack and HandleCommand decode the
// argument, raise the typed callback and apply the default action unless the
// callback cancels it. Rendering is not part of this package.
package controls
