/*
Package fileregion edits a file as a mutable byte array. Bytes can be read, overwritten and
appended at absolute offsets, and ranges can be removed from or inserted into the middle of the
file, shifting the bytes after them, without rewriting the whole file.

	e, _ := fileregion.Open("data.bin", fileregion.Opts{})
	defer e.Close()
	e.Overwrite(2, []byte("xyz"))
	e.Remove(2, 3)

An Editor does no locking. Callers sharing a file between goroutines or processes must hold their
own lock around each logical change, such as a whole Remove. Remove and Insert are not atomic: if
they fail partway the file can hold duplicated bytes from the shift.
*/
package fileregion
