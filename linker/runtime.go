package linker

// runtimeStub is the C support code linked into every executable. It
// matches the record layout and helper signatures the compiler declares:
// a str is {char *ptr; long long len; long long cap}.
const runtimeStub = `#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#include <math.h>

typedef struct {
    char *ptr;
    long long len;
    long long cap;
} caiman_str;

void _caiman_print(caiman_str *s) {
    fwrite(s->ptr, 1, (size_t)s->len, stdout);
}

void _caiman_println(caiman_str *s) {
    fwrite(s->ptr, 1, (size_t)s->len, stdout);
    fputc('\n', stdout);
}

void _caiman_eprint(caiman_str *s) {
    fwrite(s->ptr, 1, (size_t)s->len, stderr);
}

void _caiman_eprintln(caiman_str *s) {
    fwrite(s->ptr, 1, (size_t)s->len, stderr);
    fputc('\n', stderr);
}

void _caiman_assert(int ok) {
    if (!ok) {
        fputs("Assertion failed !\n", stderr);
        exit(1);
    }
}

void _caiman_bounds_fail(void) {
    fputs("index out of bounds\n", stderr);
    exit(1);
}

int _caiman_str_eq(caiman_str *a, caiman_str *b) {
    if (a->len != b->len) {
        return 0;
    }
    return memcmp(a->ptr, b->ptr, (size_t)a->len) == 0;
}

void _caiman_str_concat(caiman_str *a, caiman_str *b, caiman_str *out) {
    long long len = a->len + b->len;
    char *buf = malloc((size_t)len);
    memmove(buf, a->ptr, (size_t)a->len);
    memmove(buf + a->len, b->ptr, (size_t)b->len);
    out->ptr = buf;
    out->len = len;
    out->cap = len;
}

static void caiman_str_from_buf(caiman_str *out, const char *buf, int len) {
    out->ptr = malloc((size_t)len);
    memcpy(out->ptr, buf, (size_t)len);
    out->len = len;
    out->cap = len;
}

void _caiman_str_from_num(int n, caiman_str *out) {
    char buf[32];
    int len = snprintf(buf, sizeof(buf), "%d", n);
    caiman_str_from_buf(out, buf, len);
}

void _caiman_str_from_fnum(float f, caiman_str *out) {
    char buf[64];
    int len = snprintf(buf, sizeof(buf), "%g", (double)f);
    caiman_str_from_buf(out, buf, len);
}

void _caiman_str_from_bool(int b, caiman_str *out) {
    if (b) {
        caiman_str_from_buf(out, "true", 4);
    } else {
        caiman_str_from_buf(out, "false", 5);
    }
}

int _caiman_num_from_str(caiman_str *s) {
    char buf[32];
    long long len = s->len < 31 ? s->len : 31;
    memcpy(buf, s->ptr, (size_t)len);
    buf[len] = 0;
    char *end;
    long n = strtol(buf, &end, 10);
    if (end == buf || *end != 0) {
        fputs("could not parse the str into a num\n", stderr);
        exit(1);
    }
    return (int)n;
}

float _caiman_fnum_from_str(caiman_str *s) {
    char buf[64];
    long long len = s->len < 63 ? s->len : 63;
    memcpy(buf, s->ptr, (size_t)len);
    buf[len] = 0;
    char *end;
    float f = strtof(buf, &end);
    if (end == buf || *end != 0) {
        fputs("could not parse the str into a fnum\n", stderr);
        exit(1);
    }
    return f;
}

int _caiman_num_pow(int base, int exp) {
    if (exp < 0) {
        fputs("cannot use a negative exponent on a num\n", stderr);
        exit(1);
    }
    int result = 1;
    while (exp-- > 0) {
        result *= base;
    }
    return result;
}
`
