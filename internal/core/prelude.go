package core

// ChefGlobal is the global the loaded operation library is bound to.
const ChefGlobal = "__chef"

// PolyfillJS sets up the minimal browser/Node environment the operation
// library expects. Evaluated once per engine context, before the bundle.
const PolyfillJS = `
globalThis.global = globalThis;
globalThis.window = globalThis;
globalThis.self = globalThis;
globalThis.document = {};

globalThis.window.app = { options: { attemptHighlight: false } };

globalThis.process = {
	platform: 'linux',
	env: {},
	cwd: function() { return '/'; },
	version: 'v18.0.0',
	versions: { node: 'v18.0.0' },
	nextTick: function(fn) { fn(); }
};

if (typeof TextEncoder === 'undefined') {
	globalThis.TextEncoder = function TextEncoder() {};
	globalThis.TextEncoder.prototype.encode = function(str) {
		var utf8 = unescape(encodeURIComponent(str));
		var result = new Uint8Array(utf8.length);
		for (var i = 0; i < utf8.length; i++) {
			result[i] = utf8.charCodeAt(i);
		}
		return result;
	};
}

if (typeof TextDecoder === 'undefined') {
	globalThis.TextDecoder = function TextDecoder() {};
	globalThis.TextDecoder.prototype.decode = function(bytes) {
		if (bytes instanceof ArrayBuffer) {
			bytes = new Uint8Array(bytes);
		}
		var utf8 = Array.prototype.map.call(bytes, function(b) {
			return String.fromCharCode(b);
		}).join('');
		try {
			return decodeURIComponent(escape(utf8));
		} catch (e) {
			return utf8;
		}
	};
}

if (typeof crypto === 'undefined') {
	globalThis.crypto = {};
}
if (!globalThis.crypto.getRandomValues) {
	globalThis.crypto.getRandomValues = function(array) {
		for (var i = 0; i < array.length; i++) {
			array[i] = Math.floor(Math.random() * 256);
		}
		return array;
	};
}

globalThis.setTimeout = function(fn, ms) { fn(); return 0; };
globalThis.setInterval = function(fn, ms) { return 0; };
globalThis.clearTimeout = function(id) {};
globalThis.clearInterval = function(id) {};

if (typeof console === 'undefined') {
	globalThis.console = {
		log: function() {}, warn: function() {}, error: function() {},
		info: function() {}, debug: function() {}
	};
}
`

// ModuleScaffoldJS installs a CommonJS module wrapper so the bundle's
// assignments to module.exports land somewhere we can reach.
const ModuleScaffoldJS = `globalThis.module = { exports: {} };`

// BindChefJS captures the bundle's exports under the chef global and
// verifies the expected surface is present.
const BindChefJS = `
(function() {
	var exp = globalThis.module.exports;
	if (!exp || typeof exp.bake !== 'function' || typeof exp.Dish !== 'function') {
		throw new Error('operation library bundle did not export bake and Dish');
	}
	globalThis.` + ChefGlobal + ` = exp;
	delete globalThis.module;
})();
`

// SerializeDishJS installs the boundary serializer. Every value leaving the
// engine passes through it: buffers become plain number arrays, BigNumber
// wrappers become decimal strings, and a foreign object sitting in a
// primitive slot is stringified inside the engine so an opaque handle never
// reaches host code.
const SerializeDishJS = `
globalThis.__serializeDish = function(result) {
	var type = result.type;
	var value = result.value;
	if (type === 0 || type === 4) {
		if (value instanceof ArrayBuffer) {
			value = Array.prototype.slice.call(new Uint8Array(value));
		} else if (value && value.buffer instanceof ArrayBuffer) {
			value = Array.prototype.slice.call(value);
		} else if (!Array.isArray(value)) {
			value = [];
		}
	} else if (type === 5 && value !== null && typeof value === 'object') {
		value = value.toString();
	} else if (type !== 6 && value !== null && typeof value === 'object') {
		try { value = JSON.stringify(value); } catch (e) { value = String(value); }
		type = 1;
	}
	return JSON.stringify({ value: value, type: type });
};
`

// CompressionProbeJS empirically checks whether the operation library's
// embedded zlib survives this engine's typed-array bounds checking. Returns
// true when a small deflate succeeds synchronously.
const CompressionProbeJS = `
(function() {
	try {
		var chef = globalThis.` + ChefGlobal + `;
		var u8 = new Uint8Array([116, 101, 115, 116]);
		var dish = new chef.Dish(u8.buffer, chef.Dish.ARRAY_BUFFER);
		var out = chef.bake(dish, ["Zlib Deflate"]);
		if (out && typeof out.then === 'function') {
			return false;
		}
		return out !== null && out !== undefined;
	} catch (e) {
		return false;
	}
})()
`
