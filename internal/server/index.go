package server

// indexHTML is a minimal remote control page. The browser renders playback
// from the WAV stream and reports the end of the media back to the server.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>readaloud</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@2/css/pico.min.css">
</head>
<body>
    <main class="container" id="app">
        <p id="error" style="color: var(--pico-del-color)"></p>
        <h1 id="title">Click to record &amp; read the text</h1>
        <div role="group">
            <button id="record">Record!</button>
            <button id="play" disabled>Play!</button>
        </div>
        <audio id="player"></audio>
    </main>
    <script>
    const $ = (id) => document.getElementById(id);
    let playing = false;

    async function post(path) {
        await fetch(path, {method: 'POST'});
        refresh();
    }

    async function refresh() {
        const status = await (await fetch('/status')).json();
        const props = status.props;
        $('title').textContent = props.title;
        $('error').textContent = props.error || '';
        $('app').className = props.classes.join(' ');
        for (const c of props.controls) {
            $(c.name).disabled = c.disabled;
        }
        const player = $('player');
        if (props.source && player.getAttribute('src') !== props.source) {
            player.setAttribute('src', props.source);
        }
        const nowPlaying = props.classes.includes('playing');
        if (nowPlaying && !playing) {
            player.currentTime = status.progress;
            player.play();
        } else if (!nowPlaying && playing) {
            player.pause();
        }
        playing = nowPlaying;
    }

    $('record').onclick = () => post('/record');
    $('play').onclick = () => post('/play');
    $('player').onended = () => post('/ended');
    setInterval(refresh, 250);
    refresh();
    </script>
</body>
</html>`
