// Package document makes JSON documents observable.
//
// A Document owns a JSON value and routes every mutation through an
// emitter, so observers can watch individual paths inside the document
// the same way they watch properties of a Go struct. Paths use gjson
// syntax ("user.name", "items.0.price") and writes go through sjson, so
// the document never needs a Go type mirroring its shape.
//
// # Reading and writing
//
//	doc, err := document.New([]byte(`{"user":{"name":"alice"}}`))
//	if err != nil { ... }
//
//	name := doc.Get("user.name")       // gjson.Result
//	err = doc.Set("user.name", "bob")  // emits property + object change
//	err = doc.Delete("user.name")      // emits property + object change
//	err = doc.Replace([]byte(`{}`))    // emits object change only
//
// # Observing
//
// Path builds a property path for a location inside the document, so the
// typed observation helpers apply:
//
//	token := watchable.ObservePath(doc.Emitter(), document.Path("user.name"),
//		func(ev *watchable.PropertyChangeEvent[gjson.Result]) {
//			old, _ := ev.OldValue()
//			fmt.Println(old.String(), "->", ev.NewValue().String())
//		})
//	defer token.Dispose()
//
// Set and Delete emit the property-change event followed by a plain
// object-change event. Replace swaps the whole document and emits only
// the object-change, mirroring a proxy's Emplace.
package document
