package testing_util

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

// Assert fails the test if the condition is false
func Assert(t *testing.T, condition bool, msg string, v ...interface{}) {
	if !condition {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d: "+msg+"\n", append([]interface{}{filepath.Base(file), line}, v...)...)
		t.FailNow()
	}
}

// Ok fails the test if an err is not nil
func Ok(t *testing.T, err error) {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d: unexpected error: %s\n", filepath.Base(file), line, err.Error())
		t.FailNow()
	}
}

// Nok fails the test if an err is nil
func Nok(t *testing.T, err error) {
	if err == nil {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d: expected error, got none\n", filepath.Base(file), line)
		t.FailNow()
	}
}

// Equals fails the test if exp is not equal to act
func Equals(t *testing.T, exp, act interface{}) {
	if !reflect.DeepEqual(exp, act) {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d:\n\texp: %#v\n\tgot: %#v\n", filepath.Base(file), line, exp, act)
		t.FailNow()
	}
}

// True fails the test if act is false
func True(t *testing.T, act bool) {
	if !act {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d: expected true, got false\n", filepath.Base(file), line)
		t.FailNow()
	}
}

// False fails the test if act is true
func False(t *testing.T, act bool) {
	if act {
		_, file, line, _ := runtime.Caller(1)
		fmt.Printf("%s:%d: expected false, got true\n", filepath.Base(file), line)
		t.FailNow()
	}
}
