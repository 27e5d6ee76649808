// Package wasm runs content handlers compiled to WebAssembly.
//
// A location names a guest module and an exported function:
//
//	http {
//	  wasm_memory_limit = 256          # pages of 64 KiB
//	  wasm_cache_dir    = "/var/cache/ngxmod"
//
//	  server {
//	    location "/hello" {
//	      wasm_handler = "hello.wasm"
//	      wasm_export  = "handle"
//	      wasm_timeout = "2s"
//	    }
//	  }
//	}
//
// Guests are compiled once while the configuration loads. Each request gets
// a fresh instance, so guests keep no state between requests except what
// they put in the key-value store shared by all guests of a configuration
// (wasm_kv_max_entries bounds it, 1024 keys by default).
//
// # Guest ABI
//
// The export takes no arguments and returns an i32. Zero means "respond
// with what I wrote", using the status set with set_status (200 by
// default). Any other value is returned to the host as the handler's
// status, for example 403 or -1 (error).
//
// The host module "ngx" provides:
//
//	is_main() i32                                  1 for the main request
//	user_agent(ptr, cap i32) i32                   copies up to cap bytes, returns the full length or -1
//	set_status(status i32)
//	set_header(kptr, klen, vptr, vlen i32)
//	write(ptr, len i32)                            appends to the response body
//	log(ptr, len i32)
//	kv_get(kptr, klen, vptr, cap i32) i32          copies up to cap bytes, returns the full length or -1
//	kv_set(kptr, klen, vptr, vlen i32) i32         0, or -1 when the store is full
//	kv_delete(kptr, klen i32)
package wasm
